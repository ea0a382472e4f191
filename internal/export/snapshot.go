// Package export captures point-in-time host snapshots and serializes
// them, and provides the CSV sink used by long-running performance
// logging.
package export

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/procsight/procsight/internal/inspect"
	"github.com/procsight/procsight/internal/netstat"
	"github.com/procsight/procsight/internal/service"
	"github.com/procsight/procsight/pkg/models"
)

// Options selects which optional sections a snapshot carries. Host,
// CPU, memory, disk and network are always included.
type Options struct {
	Processes   bool
	TopCount    int
	Connections bool
	Services    bool
}

// Exporter builds snapshots. Each section degrades independently:
// a failed reading is logged and its section left empty.
type Exporter struct {
	logger    *zap.Logger
	inspector *inspect.Inspector
	sockets   *netstat.Netstat
	backend   service.Backend
}

// NewExporter creates an Exporter. The backend may be nil when no
// service manager is available; the services section is then skipped.
func NewExporter(logger *zap.Logger, inspector *inspect.Inspector, sockets *netstat.Netstat, backend service.Backend) *Exporter {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Exporter{
		logger:    logger,
		inspector: inspector,
		sockets:   sockets,
		backend:   backend,
	}
}

// Build captures one snapshot.
func (e *Exporter) Build(ctx context.Context, opts Options) *models.Snapshot {
	snap := &models.Snapshot{Timestamp: time.Now().UTC()}

	snap.Host = e.collectHost()
	snap.CPU = e.collectCPU()
	snap.Memory = e.collectMemory()
	snap.Disks = e.collectDisks()
	snap.Network = e.collectNetwork()
	snap.Interfaces = e.collectInterfaces()

	if opts.Processes && e.inspector != nil {
		count := opts.TopCount
		if count <= 0 {
			count = 20
		}
		procs, err := e.inspector.Top(count, false)
		if err != nil {
			e.logger.Warn("failed to collect processes", zap.Error(err))
		} else {
			snap.Processes = procs
		}
	}

	if opts.Connections && e.sockets != nil {
		conns, err := e.sockets.List("all", false)
		if err != nil {
			e.logger.Warn("failed to collect connections", zap.Error(err))
		} else {
			snap.Connections = conns
		}
	}

	if opts.Services && e.backend != nil {
		for _, rec := range e.backend.ListServices(ctx) {
			snap.Services = append(snap.Services, models.ServiceInfo{
				Name:        rec.Name,
				DisplayName: rec.DisplayName,
				State:       string(rec.State),
				Backend:     rec.Kind,
			})
		}
	}

	return snap
}

func (e *Exporter) collectHost() models.HostInfo {
	info := models.HostInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
	h, err := host.Info()
	if err != nil {
		e.logger.Warn("failed to collect host info", zap.Error(err))
		return info
	}
	info.Hostname = h.Hostname
	info.Platform = h.Platform
	info.OSVersion = h.PlatformVersion
	info.Uptime = h.Uptime
	info.BootTime = h.BootTime
	return info
}

func (e *Exporter) collectCPU() models.CPUMetrics {
	metrics := models.CPUMetrics{}

	if percentages, err := cpu.Percent(0, false); err != nil {
		e.logger.Warn("failed to collect CPU usage", zap.Error(err))
	} else if len(percentages) > 0 {
		metrics.UsedPct = percentages[0]
	}

	if perCore, err := cpu.Percent(0, true); err == nil {
		metrics.PerCore = perCore
	}

	if cores, err := cpu.Counts(true); err == nil {
		metrics.Cores = cores
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		metrics.Model = infos[0].ModelName
	}

	return metrics
}

func (e *Exporter) collectMemory() models.MemoryMetrics {
	metrics := models.MemoryMetrics{}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		e.logger.Warn("failed to collect memory stats", zap.Error(err))
		return metrics
	}
	metrics.Total = vmem.Total
	metrics.Available = vmem.Available
	metrics.Used = vmem.Used
	metrics.UsedPct = vmem.UsedPercent

	if swap, err := mem.SwapMemory(); err == nil && swap.Total > 0 {
		metrics.SwapTotal = swap.Total
		metrics.SwapUsedPct = swap.UsedPercent
	}

	return metrics
}

func (e *Exporter) collectDisks() []models.DiskMetrics {
	partitions, err := disk.Partitions(false)
	if err != nil {
		e.logger.Warn("failed to collect disk partitions", zap.Error(err))
		return nil
	}

	var out []models.DiskMetrics
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			e.logger.Debug("failed to read disk usage",
				zap.String("mount", partition.Mountpoint),
				zap.Error(err))
			continue
		}
		out = append(out, models.DiskMetrics{
			Device:     partition.Device,
			MountPoint: partition.Mountpoint,
			FSType:     partition.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
			UsedPct:    usage.UsedPercent,
		})
	}
	return out
}

func (e *Exporter) collectNetwork() models.NetworkMetrics {
	metrics := models.NetworkMetrics{}

	counters, err := psnet.IOCounters(false)
	if err != nil {
		e.logger.Warn("failed to collect network counters", zap.Error(err))
		return metrics
	}
	if len(counters) > 0 {
		metrics.BytesSent = counters[0].BytesSent
		metrics.BytesRecv = counters[0].BytesRecv
		metrics.PacketsSent = counters[0].PacketsSent
		metrics.PacketsRecv = counters[0].PacketsRecv
		metrics.Errors = counters[0].Errin + counters[0].Errout
	}
	return metrics
}

func (e *Exporter) collectInterfaces() []models.InterfaceMetrics {
	counters, err := psnet.IOCounters(true)
	if err != nil {
		e.logger.Warn("failed to collect per-interface counters", zap.Error(err))
		return nil
	}
	var out []models.InterfaceMetrics
	for _, c := range counters {
		out = append(out, models.InterfaceMetrics{
			Name:        c.Name,
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
			ErrorsIn:    c.Errin,
			ErrorsOut:   c.Errout,
		})
	}
	return out
}
