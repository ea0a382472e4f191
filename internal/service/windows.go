package service

import (
	"context"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Windows controls services through sc.exe. Extended metadata comes
// from a best-effort registry read that silently degrades to nothing
// without administrator rights.
type Windows struct {
	run    runner
	logger *zap.Logger
	opts   Options
	goos   string
}

// NewWindows creates the Windows backend with the given logger.
func NewWindows(logger *zap.Logger, opts Options) *Windows {
	return &Windows{
		run:    execRunner{},
		logger: ensureLogger(logger),
		opts:   opts,
		goos:   runtime.GOOS,
	}
}

func (w *Windows) Kind() string { return "windows" }

// IsAvailable checks the running OS identity.
func (w *Windows) IsAvailable() bool {
	return w.goos == "windows"
}

// ListServices parses the block-oriented output of
// `sc.exe query type= service state= all`. Each service is a run of
// SERVICE_NAME / DISPLAY_NAME / TYPE / STATE lines.
func (w *Windows) ListServices(ctx context.Context) []Record {
	res, err := w.run.run(ctx, w.opts.query(), "sc.exe", "query", "type=", "service", "state=", "all")
	if err != nil || !res.ok() {
		w.logger.Error("list services failed",
			zap.String("backend", w.Kind()),
			zap.String("cause", runFailure(res, err)))
		return nil
	}

	var records []Record
	var cur *Record
	for _, line := range strings.Split(res.stdout, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SERVICE_NAME:"):
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &Record{
				Name:  strings.TrimSpace(strings.TrimPrefix(line, "SERVICE_NAME:")),
				State: StateUnknown,
				Kind:  "Service",
			}
		case cur == nil:
			continue
		case strings.HasPrefix(line, "DISPLAY_NAME:"):
			cur.DisplayName = strings.TrimSpace(strings.TrimPrefix(line, "DISPLAY_NAME:"))
		case strings.HasPrefix(line, "STATE"):
			cur.State = scState(line)
		}
	}
	if cur != nil {
		records = append(records, *cur)
	}
	for i := range records {
		if records[i].DisplayName == "" {
			records[i].DisplayName = records[i].Name
		}
	}
	return records
}

// scState maps an sc.exe STATE line ("STATE : 4  RUNNING") onto the
// normalized set.
func scState(line string) State {
	switch {
	case strings.Contains(line, "RUNNING"):
		return StateRunning
	case strings.Contains(line, "STOPPED"):
		return StateStopped
	default:
		return StateUnknown
	}
}

func (w *Windows) Start(ctx context.Context, name string) bool {
	return w.action(ctx, "start", name, "start", name)
}

func (w *Windows) Stop(ctx context.Context, name string) bool {
	return w.action(ctx, "stop", name, "stop", name)
}

// Restart is stop-then-start; sc.exe has no restart verb. Both steps
// must succeed.
func (w *Windows) Restart(ctx context.Context, name string) bool {
	stopped := w.run1(ctx, "stop", name)
	started := false
	if stopped {
		started = w.run1(ctx, "start", name)
	}
	success := stopped && started
	cause := ""
	if !success {
		cause = "stop or start step failed"
	}
	logAction(w.logger, w.Kind(), "restart", name, success, cause)
	return success
}

// Enable registers the service for automatic start at boot.
func (w *Windows) Enable(ctx context.Context, name string) bool {
	return w.action(ctx, "enable", name, "config", name, "start=", "auto")
}

// Disable removes the service from automatic start.
func (w *Windows) Disable(ctx context.Context, name string) bool {
	return w.action(ctx, "disable", name, "config", name, "start=", "disabled")
}

// Status returns the raw `sc.exe query` output, augmented with
// whatever the registry read yields (empty without privilege).
func (w *Windows) Status(ctx context.Context, name string) *StatusReport {
	res, err := w.run.run(ctx, w.opts.query(), "sc.exe", "query", name)
	if err != nil {
		w.logger.Error("status query failed",
			zap.String("backend", w.Kind()),
			zap.String("service", name),
			zap.Error(err))
		return nil
	}
	return &StatusReport{
		Name:     name,
		ExitCode: res.exitCode,
		Stdout:   res.stdout,
		Stderr:   res.stderr,
		Extra:    readServiceRegistry(name),
	}
}

func (w *Windows) action(ctx context.Context, op, name string, scArgs ...string) bool {
	res, err := w.run.run(ctx, w.opts.action(), "sc.exe", scArgs...)
	success := err == nil && res.ok()
	logAction(w.logger, w.Kind(), op, name, success, runFailure(res, err))
	return success
}

func (w *Windows) run1(ctx context.Context, scArgs ...string) bool {
	res, err := w.run.run(ctx, w.opts.action(), "sc.exe", scArgs...)
	return err == nil && res.ok()
}
