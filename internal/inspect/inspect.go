// Package inspect provides process search, ranking, and control on top
// of the live process table. Fields that need elevated rights degrade
// to their zero value rather than failing the whole lookup.
package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/procsight/procsight/pkg/models"
)

// Inspector reads and controls processes.
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates an Inspector with the given logger.
func NewInspector(logger *zap.Logger) *Inspector {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Inspector{logger: logger}
}

// Search returns every process whose name or command line contains the
// pattern, case-insensitively. Processes that disappear or deny access
// mid-scan are skipped.
func (i *Inspector) Search(pattern string) ([]models.ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	needle := strings.ToLower(pattern)
	var matches []models.ProcessInfo
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		cmdline, _ := p.Cmdline()
		if !strings.Contains(strings.ToLower(name), needle) &&
			!strings.Contains(strings.ToLower(cmdline), needle) {
			continue
		}
		matches = append(matches, i.summary(p, name, cmdline))
	}

	sort.Slice(matches, func(a, b int) bool { return matches[a].PID < matches[b].PID })
	return matches, nil
}

// Top returns the n processes consuming the most CPU, or the most
// memory when byMemory is set.
func (i *Inspector) Top(n int, byMemory bool) ([]models.ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var all []models.ProcessInfo
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		all = append(all, i.summary(p, name, ""))
	}

	return Rank(all, n, byMemory), nil
}

// Rank sorts processes by CPU (or memory) descending and keeps the
// first n. Ties break on PID so the order is stable.
func Rank(procs []models.ProcessInfo, n int, byMemory bool) []models.ProcessInfo {
	sort.Slice(procs, func(a, b int) bool {
		pa, pb := procs[a], procs[b]
		ka, kb := pa.CPUPercent, pb.CPUPercent
		if byMemory {
			ka, kb = pa.MemoryPercent, pb.MemoryPercent
		}
		if ka != kb {
			return ka > kb
		}
		return pa.PID < pb.PID
	})
	if n > 0 && len(procs) > n {
		procs = procs[:n]
	}
	return procs
}

// Info returns the full detail record for one PID.
func (i *Inspector) Info(pid int32) (*models.ProcessInfo, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("process %d not found: %w", pid, err)
	}

	name, err := p.Name()
	if err != nil {
		return nil, fmt.Errorf("failed to read process %d: %w", pid, err)
	}
	cmdline, _ := p.Cmdline()
	info := i.summary(p, name, cmdline)

	if ppid, err := p.Ppid(); err == nil {
		info.PPID = ppid
	}
	if exe, err := p.Exe(); err == nil {
		info.Exe = exe
	}
	if username, err := p.Username(); err == nil {
		info.Username = username
	}
	if statuses, err := p.Status(); err == nil && len(statuses) > 0 {
		info.Status = statuses[0]
	}
	if created, err := p.CreateTime(); err == nil {
		info.CreateTime = created
	}
	if files, err := p.OpenFiles(); err == nil {
		info.OpenFiles = len(files)
	}
	if conns, err := p.Connections(); err == nil {
		info.Connections = len(conns)
	}
	if children, err := p.Children(); err == nil {
		for _, c := range children {
			info.Children = append(info.Children, c.Pid)
		}
	}

	return &info, nil
}

// Terminate asks confirm before acting, then sends a graceful
// termination signal, or SIGKILL when force is set. The confirm
// callback receives the resolved process so the caller can show what
// is about to die.
func (i *Inspector) Terminate(pid int32, force bool, confirm func(models.ProcessInfo) bool) (bool, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return false, fmt.Errorf("process %d not found: %w", pid, err)
	}
	name, err := p.Name()
	if err != nil {
		return false, fmt.Errorf("failed to read process %d: %w", pid, err)
	}

	if confirm != nil && !confirm(i.summary(p, name, "")) {
		i.logger.Info("termination declined",
			zap.Int32("pid", pid),
			zap.String("name", name))
		return false, nil
	}

	if force {
		err = p.Kill()
	} else {
		err = p.Terminate()
	}
	if err != nil {
		i.logger.Error("termination failed",
			zap.Int32("pid", pid),
			zap.String("name", name),
			zap.Bool("force", force),
			zap.Error(err))
		return false, err
	}

	i.logger.Info("process terminated",
		zap.Int32("pid", pid),
		zap.String("name", name),
		zap.Bool("force", force))
	return true, nil
}

// summary reads the cheap per-process fields shared by every listing.
func (i *Inspector) summary(p *process.Process, name, cmdline string) models.ProcessInfo {
	info := models.ProcessInfo{
		PID:     p.Pid,
		Name:    name,
		Cmdline: cmdline,
	}
	if cpuPct, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpuPct
	}
	if memPct, err := p.MemoryPercent(); err == nil {
		info.MemoryPercent = float64(memPct)
	}
	if memInfo, err := p.MemoryInfo(); err == nil && memInfo != nil {
		info.MemoryRSS = memInfo.RSS
	}
	if threads, err := p.NumThreads(); err == nil {
		info.NumThreads = threads
	}
	if io, err := p.IOCounters(); err == nil {
		info.IOReadBytes = io.ReadBytes
		info.IOWriteBytes = io.WriteBytes
	}
	return info
}
