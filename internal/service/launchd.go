package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// plistDirs are searched in order when enable/disable needs the unit
// file behind a launchd label.
var plistDirs = []string{
	"/Library/LaunchDaemons",
	"/System/Library/LaunchDaemons",
	"/Library/LaunchAgents",
	"/System/Library/LaunchAgents",
}

// Launchd controls services through launchctl on macOS. Enable and
// disable operate on the declarative plist behind a label, so both
// first locate the file across the candidate directories.
type Launchd struct {
	run    runner
	logger *zap.Logger
	opts   Options
	goos   string
	stat   func(string) (fs.FileInfo, error)
}

// NewLaunchd creates the launchd backend with the given logger.
func NewLaunchd(logger *zap.Logger, opts Options) *Launchd {
	return &Launchd{
		run:    execRunner{},
		logger: ensureLogger(logger),
		opts:   opts,
		goos:   runtime.GOOS,
		stat:   os.Stat,
	}
}

func (l *Launchd) Kind() string { return "launchd" }

// IsAvailable checks the running OS identity; launchd is pid 1 on
// every supported macOS.
func (l *Launchd) IsAvailable() bool {
	return l.goos == "darwin"
}

// ListServices parses `launchctl list` output. Each line is
// PID, last exit status, label; a dash in the PID column means the job
// is loaded but not running.
func (l *Launchd) ListServices(ctx context.Context) []Record {
	res, err := l.run.run(ctx, l.opts.query(), "launchctl", "list")
	if err != nil || !res.ok() {
		l.logger.Error("list services failed",
			zap.String("backend", l.Kind()),
			zap.String("cause", runFailure(res, err)))
		return nil
	}

	var records []Record
	for _, line := range strings.Split(res.stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] == "PID" {
			continue
		}
		state := StateStopped
		if fields[0] != "-" {
			state = StateRunning
		}
		label := fields[2]
		records = append(records, Record{
			Name:        label,
			DisplayName: label,
			State:       state,
			Kind:        "LaunchD",
		})
	}
	return records
}

func (l *Launchd) Start(ctx context.Context, name string) bool {
	return l.action(ctx, "start", name, "launchctl", "start", name)
}

func (l *Launchd) Stop(ctx context.Context, name string) bool {
	return l.action(ctx, "stop", name, "launchctl", "stop", name)
}

// Restart is stop-then-start; launchctl has no restart verb. Both
// steps must succeed.
func (l *Launchd) Restart(ctx context.Context, name string) bool {
	stopped := l.run1(ctx, "launchctl", "stop", name)
	started := false
	if stopped {
		started = l.run1(ctx, "launchctl", "start", name)
	}
	success := stopped && started
	cause := ""
	if !success {
		cause = "stop or start step failed"
	}
	logAction(l.logger, l.Kind(), "restart", name, success, cause)
	return success
}

// Enable loads the plist behind the label. A label with no locatable
// plist fails explicitly without invoking launchctl.
func (l *Launchd) Enable(ctx context.Context, name string) bool {
	return l.loadUnload(ctx, "enable", "load", name)
}

// Disable unloads the plist behind the label.
func (l *Launchd) Disable(ctx context.Context, name string) bool {
	return l.loadUnload(ctx, "disable", "unload", name)
}

func (l *Launchd) loadUnload(ctx context.Context, op, verb, name string) bool {
	plist := l.findPlist(name)
	if plist == "" {
		logAction(l.logger, l.Kind(), op, name, false, "plist not found")
		return false
	}
	res, err := l.run.run(ctx, l.opts.action(), "launchctl", verb, plist)
	success := err == nil && res.ok()
	logAction(l.logger, l.Kind(), op, name, success, runFailure(res, err))
	return success
}

// findPlist returns the first existing <dir>/<label>.plist across the
// candidate directories, or empty when none exists.
func (l *Launchd) findPlist(label string) string {
	for _, dir := range plistDirs {
		p := filepath.Join(dir, label+".plist")
		if _, err := l.stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Status returns the raw `launchctl print` output for troubleshooting.
func (l *Launchd) Status(ctx context.Context, name string) *StatusReport {
	res, err := l.run.run(ctx, l.opts.query(), "launchctl", "print", "system/"+name)
	if err != nil {
		l.logger.Error("status query failed",
			zap.String("backend", l.Kind()),
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

func (l *Launchd) action(ctx context.Context, op, name string, cmdArgs ...string) bool {
	res, err := l.run.run(ctx, l.opts.action(), cmdArgs[0], cmdArgs[1:]...)
	success := err == nil && res.ok()
	logAction(l.logger, l.Kind(), op, name, success, runFailure(res, err))
	return success
}

func (l *Launchd) run1(ctx context.Context, cmd string, args ...string) bool {
	res, err := l.run.run(ctx, l.opts.action(), cmd, args...)
	return err == nil && res.ok()
}
