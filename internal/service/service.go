// Package service provides a uniform control surface over the three
// native service managers (systemd, launchd, the Windows service
// control manager). Each backend normalizes its manager's output into
// the same Record shape and exposes the same capability set; failures
// never cross the backend boundary as errors, only as empty results or
// a false outcome plus a log entry.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// State is the normalized run state of a service. Backend-specific raw
// state strings are mapped onto this closed set.
type State string

const (
	StateRunning State = "Running"
	StateStopped State = "Stopped"
	StateUnknown State = "Unknown"
)

// Record is a normalized, backend-agnostic description of one service.
// Records are constructed fresh on every ListServices call and carry no
// identity beyond Name.
type Record struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	State       State  `json:"state"`
	Kind        string `json:"kind"`
}

// StatusReport is the raw diagnostic passthrough from a status query:
// exit code plus captured output, not parsed into a Record.
type StatusReport struct {
	Name     string            `json:"name"`
	ExitCode int               `json:"exitCode"`
	Stdout   string            `json:"stdout"`
	Stderr   string            `json:"stderr"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Backend is the capability set every service manager variant
// implements. Mutating operations return true iff the native control
// command reported success, and log every attempt regardless of
// outcome. ListServices returns an empty slice on any failure.
type Backend interface {
	// Kind returns the backend label ("systemd", "launchd", "windows").
	Kind() string

	// IsAvailable is a cheap, side-effect-free probe. It returns false
	// rather than failing on an unsupported OS.
	IsAvailable() bool

	ListServices(ctx context.Context) []Record
	Start(ctx context.Context, name string) bool
	Stop(ctx context.Context, name string) bool
	Restart(ctx context.Context, name string) bool
	Enable(ctx context.Context, name string) bool
	Disable(ctx context.Context, name string) bool

	// Status returns the raw diagnostic output for one service, or nil
	// when the query itself could not run.
	Status(ctx context.Context, name string) *StatusReport
}

// Default subprocess bounds. Queries are short; mutating actions get
// longer because service managers block until the unit settles.
const (
	defaultQueryTimeout  = 10 * time.Second
	defaultActionTimeout = 30 * time.Second
	restartTimeout       = 60 * time.Second
	probeTimeout         = 5 * time.Second
)

// Options tunes backend subprocess timeouts. Zero values keep the
// defaults.
type Options struct {
	QueryTimeout  time.Duration
	ActionTimeout time.Duration
}

func (o Options) query() time.Duration {
	if o.QueryTimeout > 0 {
		return o.QueryTimeout
	}
	return defaultQueryTimeout
}

func (o Options) action() time.Duration {
	if o.ActionTimeout > 0 {
		return o.ActionTimeout
	}
	return defaultActionTimeout
}

func ensureLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// logAction records one mutating attempt and its outcome. Every
// backend action funnels through here so the log always carries
// {operation, service, success}.
func logAction(logger *zap.Logger, backend, op, name string, success bool, cause string) {
	fields := []zap.Field{
		zap.String("backend", backend),
		zap.String("operation", op),
		zap.String("service", name),
		zap.Bool("success", success),
	}
	if success {
		logger.Info("service action", fields...)
		return
	}
	if cause != "" {
		fields = append(fields, zap.String("cause", cause))
	}
	logger.Error("service action failed", fields...)
}
