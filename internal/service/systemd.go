package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Systemd controls services through systemctl on Linux.
type Systemd struct {
	run    runner
	logger *zap.Logger
	opts   Options
}

// NewSystemd creates the systemd backend with the given logger.
func NewSystemd(logger *zap.Logger, opts Options) *Systemd {
	return &Systemd{
		run:    execRunner{},
		logger: ensureLogger(logger),
		opts:   opts,
	}
}

func (s *Systemd) Kind() string { return "systemd" }

// IsAvailable probes systemctl with a short timeout. A missing binary
// or a probe failure means not available, never an error.
func (s *Systemd) IsAvailable() bool {
	res, err := s.run.run(context.Background(), probeTimeout, "systemctl", "--version")
	return err == nil && res.ok()
}

// ListServices parses `systemctl list-units --type=service --all` into
// normalized records. On any failure it returns an empty slice and
// logs once.
func (s *Systemd) ListServices(ctx context.Context) []Record {
	res, err := s.run.run(ctx, s.opts.query(), "systemctl", "list-units", "--type=service", "--all", "--no-legend", "--no-pager", "--plain")
	if err != nil || !res.ok() {
		s.logger.Error("list services failed",
			zap.String("backend", s.Kind()),
			zap.String("cause", runFailure(res, err)))
		return nil
	}

	var records []Record
	for _, line := range strings.Split(res.stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		// Failed units may carry a leading bullet.
		if fields[0] == "●" || fields[0] == "*" {
			fields = fields[1:]
		}
		// UNIT LOAD ACTIVE SUB DESCRIPTION...
		if len(fields) < 4 || !strings.HasSuffix(fields[0], ".service") {
			continue
		}
		rec := Record{
			Name:        fields[0],
			DisplayName: fields[0],
			State:       systemdState(fields[2]),
			Kind:        "Service",
		}
		if len(fields) > 4 {
			rec.DisplayName = strings.Join(fields[4:], " ")
		}
		records = append(records, rec)
	}
	return records
}

func systemdState(active string) State {
	switch active {
	case "active", "activating", "reloading":
		return StateRunning
	case "inactive", "failed", "deactivating":
		return StateStopped
	default:
		return StateUnknown
	}
}

func (s *Systemd) Start(ctx context.Context, name string) bool {
	return s.action(ctx, "start", name, s.opts.action())
}

func (s *Systemd) Stop(ctx context.Context, name string) bool {
	return s.action(ctx, "stop", name, s.opts.action())
}

// Restart uses systemd's native restart verb, which may block through
// a full stop/start cycle.
func (s *Systemd) Restart(ctx context.Context, name string) bool {
	return s.action(ctx, "restart", name, restartTimeout)
}

func (s *Systemd) Enable(ctx context.Context, name string) bool {
	return s.action(ctx, "enable", name, s.opts.action())
}

func (s *Systemd) Disable(ctx context.Context, name string) bool {
	return s.action(ctx, "disable", name, s.opts.action())
}

// Status returns the raw `systemctl status` output for troubleshooting.
func (s *Systemd) Status(ctx context.Context, name string) *StatusReport {
	res, err := s.run.run(ctx, s.opts.query(), "systemctl", "status", name)
	if err != nil {
		s.logger.Error("status query failed",
			zap.String("backend", s.Kind()),
			zap.String("service", name),
			zap.Error(err))
		return nil
	}
	return &StatusReport{
		Name:     name,
		ExitCode: res.exitCode,
		Stdout:   res.stdout,
		Stderr:   res.stderr,
	}
}

func (s *Systemd) action(ctx context.Context, verb, name string, timeout time.Duration) bool {
	res, err := s.run.run(ctx, timeout, "systemctl", verb, name)
	success := err == nil && res.ok()
	logAction(s.logger, s.Kind(), verb, name, success, runFailure(res, err))
	return success
}

func runFailure(res result, err error) string {
	if err != nil {
		return err.Error()
	}
	return res.cause()
}
