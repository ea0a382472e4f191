// Package monitor drives fixed-interval polling sessions over live
// processes and system-wide counters. Cumulative counter readings are
// turned into per-tick deltas; a session tolerates targets dying or
// becoming inaccessible mid-loop and honors cancellation at every
// tick boundary and during the inter-tick sleep.
package monitor

import (
	"errors"
	"time"
)

// Conditions a provider must distinguish so the sampling loop can tell
// a vanished target from one it lost permission to read.
var (
	ErrNotFound     = errors.New("process not found")
	ErrAccessDenied = errors.New("access denied")
)

// Outcome is the terminal state of one sampling session.
type Outcome int

const (
	// OutcomeCompleted means the duration budget elapsed.
	OutcomeCompleted Outcome = iota
	// OutcomeTerminated means every target died or none resolved.
	OutcomeTerminated
	// OutcomeCancelled means the caller's context was cancelled.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTerminated:
		return "terminated"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Sample is one tick's reading for one process. CPU, memory and thread
// values are instantaneous; the byte fields are per-tick deltas,
// clamped to zero when the underlying cumulative counter reset.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	PID           int32     `json:"pid"`
	Name          string    `json:"name"`
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	NumThreads    int32     `json:"numThreads"`
	IOReadDelta   uint64    `json:"ioReadDelta"`
	IOWriteDelta  uint64    `json:"ioWriteDelta"`
	NetSentDelta  uint64    `json:"netSentDelta"`
	NetRecvDelta  uint64    `json:"netRecvDelta"`
}

// SystemSample is one tick's aggregate system reading.
type SystemSample struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUPercent     float64   `json:"cpuPercent"`
	MemoryPercent  float64   `json:"memoryPercent"`
	DiskPercent    float64   `json:"diskPercent"`
	NetSentDelta   uint64    `json:"netSentDelta"`
	NetRecvDelta   uint64    `json:"netRecvDelta"`
	DiskReadDelta  uint64    `json:"diskReadDelta"`
	DiskWriteDelta uint64    `json:"diskWriteDelta"`
}

// Delta returns curr-prev, clamped to zero when the counter appears to
// have reset or wrapped. A delta is never negative.
func Delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}

// target is one watched process. A dead target stays in the slice so
// its history remains attributable, but is skipped on later ticks.
type target struct {
	pid         int32
	name        string
	pattern     string
	alive       bool
	prevIORead  uint64
	prevIOWrite uint64
}

// Sink receives one emitted sample per tick per live target. The
// session closes the sink on every exit path, including cancellation.
type Sink interface {
	WriteSample(s Sample) error
	WriteSystemSample(s SystemSample) error
	Close() error
}
