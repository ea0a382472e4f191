package monitor

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// TargetInfo identifies one resolved process.
type TargetInfo struct {
	PID  int32
	Name string
}

// ProcCounters is a point-in-time reading of one process. IO fields
// are cumulative since process start; the rest are instantaneous.
type ProcCounters struct {
	CPUPercent    float64
	MemoryPercent float64
	NumThreads    int32
	IORead        uint64
	IOWrite       uint64
}

// SystemCounters is a point-in-time aggregate reading. Net and disk
// byte fields are cumulative since boot. NetValid and DiskIOValid
// report whether those cumulative fields were actually read this time;
// a zero with the flag down is a failed reading, not a real zero, and
// must not become a delta baseline.
type SystemCounters struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	NetSent       uint64
	NetRecv       uint64
	DiskRead      uint64
	DiskWrite     uint64
	NetValid      bool
	DiskIOValid   bool
}

// Provider supplies process and system counter readings to a sampling
// session. Implementations must surface ErrNotFound and ErrAccessDenied
// as distinguishable conditions.
type Provider interface {
	FindByPID(pid int32) (TargetInfo, error)
	FindByName(pattern string) ([]TargetInfo, error)
	ProcessCounters(pid int32) (ProcCounters, error)
	SystemCounters() (SystemCounters, error)
	NetCounters() (sent, recv uint64, err error)
}

// SystemProvider reads live counters through gopsutil. Partial
// failures inside an aggregate reading are logged as warnings and
// reported as zero values rather than failing the whole reading.
type SystemProvider struct {
	logger *zap.Logger
}

// NewSystemProvider creates a provider with the given logger.
func NewSystemProvider(logger *zap.Logger) *SystemProvider {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &SystemProvider{logger: logger}
}

// FindByPID resolves a process by exact PID.
func (p *SystemProvider) FindByPID(pid int32) (TargetInfo, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return TargetInfo{}, mapProcessError(err)
	}
	name, err := proc.Name()
	if err != nil {
		return TargetInfo{}, mapProcessError(err)
	}
	return TargetInfo{PID: pid, Name: name}, nil
}

// FindByName returns every process whose name contains the pattern,
// matched case-insensitively. Processes that cannot be read are
// skipped, matching the best-effort semantics of enumeration.
func (p *SystemProvider) FindByName(pattern string) ([]TargetInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	needle := strings.ToLower(pattern)
	var matches []TargetInfo
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			matches = append(matches, TargetInfo{PID: proc.Pid, Name: name})
		}
	}
	return matches, nil
}

// ProcessCounters reads one process's counters. IO counters are
// unavailable on some platforms and degrade to zero.
func (p *SystemProvider) ProcessCounters(pid int32) (ProcCounters, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ProcCounters{}, mapProcessError(err)
	}

	cpuPct, err := proc.CPUPercent()
	if err != nil {
		return ProcCounters{}, mapProcessError(err)
	}
	memPct, err := proc.MemoryPercent()
	if err != nil {
		return ProcCounters{}, mapProcessError(err)
	}

	counters := ProcCounters{
		CPUPercent:    cpuPct,
		MemoryPercent: float64(memPct),
	}
	if threads, err := proc.NumThreads(); err == nil {
		counters.NumThreads = threads
	}
	if io, err := proc.IOCounters(); err == nil {
		counters.IORead = io.ReadBytes
		counters.IOWrite = io.WriteBytes
	}
	return counters, nil
}

// SystemCounters reads the aggregate system counters in one pass.
func (p *SystemProvider) SystemCounters() (SystemCounters, error) {
	var counters SystemCounters
	var failures int

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		counters.CPUPercent = pcts[0]
	} else {
		p.logger.Warn("cpu counters unavailable", zap.Error(err))
		failures++
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		counters.MemoryPercent = vm.UsedPercent
	} else {
		p.logger.Warn("memory counters unavailable", zap.Error(err))
		failures++
	}

	if usage, err := disk.Usage(rootPath()); err == nil {
		counters.DiskPercent = usage.UsedPercent
	} else {
		p.logger.Warn("disk usage unavailable", zap.Error(err))
		failures++
	}

	if sent, recv, err := p.NetCounters(); err == nil {
		counters.NetSent = sent
		counters.NetRecv = recv
		counters.NetValid = true
	} else {
		p.logger.Warn("network counters unavailable", zap.Error(err))
		failures++
	}

	if io, err := disk.IOCounters(); err == nil {
		for _, c := range io {
			counters.DiskRead += c.ReadBytes
			counters.DiskWrite += c.WriteBytes
		}
		counters.DiskIOValid = true
	}

	if failures == 4 {
		return counters, errors.New("all system counters unavailable")
	}
	return counters, nil
}

// NetCounters returns system-wide cumulative network bytes.
func (p *SystemProvider) NetCounters() (uint64, uint64, error) {
	io, err := psnet.IOCounters(false)
	if err != nil {
		return 0, 0, fmt.Errorf("network counters: %w", err)
	}
	if len(io) == 0 {
		return 0, 0, errors.New("no aggregate network counters")
	}
	return io[0].BytesSent, io[0].BytesRecv, nil
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		if drive := os.Getenv("SystemDrive"); drive != "" {
			return drive + `\`
		}
		return `C:\`
	}
	return "/"
}

// mapProcessError converts gopsutil and OS errors onto the two
// conditions the sampling loop distinguishes.
func mapProcessError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, syscall.ESRCH):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case os.IsPermission(err),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}
