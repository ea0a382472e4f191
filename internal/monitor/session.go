package monitor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Session runs one monitoring loop. A session owns its previous-value
// cache outright; two concurrent sessions share nothing but the
// read-only OS counters they both poll. Construct a fresh Session per
// invocation.
type Session struct {
	provider Provider
	sink     Sink
	logger   *zap.Logger
	interval time.Duration
	duration time.Duration
}

// NewSession creates a session polling at interval. A zero duration
// means no budget: the loop runs until the targets die or the context
// is cancelled.
func NewSession(provider Provider, sink Sink, logger *zap.Logger, interval, duration time.Duration) *Session {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Session{
		provider: provider,
		sink:     sink,
		logger:   logger,
		interval: interval,
		duration: duration,
	}
}

// WatchProcess monitors a single process. The pattern is either a
// numeric PID (exact) or a case-insensitive substring of the process
// name, in which case the first match wins.
func (s *Session) WatchProcess(ctx context.Context, pattern string) Outcome {
	targets := s.resolve(pattern, true)
	if len(targets) == 0 {
		return s.noTargets(pattern)
	}
	return s.sampleProcesses(ctx, targets)
}

// WatchProcesses monitors every process matching any of the patterns.
func (s *Session) WatchProcesses(ctx context.Context, patterns ...string) Outcome {
	var targets []*target
	for _, pattern := range patterns {
		targets = append(targets, s.resolve(pattern, false)...)
	}
	if len(targets) == 0 {
		return s.noTargets(strings.Join(patterns, ","))
	}
	return s.sampleProcesses(ctx, targets)
}

// WatchSystem monitors aggregate system counters, one sample per tick.
func (s *Session) WatchSystem(ctx context.Context) Outcome {
	defer s.closeSink()

	start := time.Now()
	var prev SystemCounters
	netPrimed := false
	diskPrimed := false

	for {
		if outcome, done := s.tickBoundary(ctx, start); done {
			return outcome
		}

		curr, err := s.provider.SystemCounters()
		if err != nil {
			s.logger.Error("system sampling aborted",
				zap.String("operation", "monitor_system"),
				zap.String("outcome", OutcomeTerminated.String()),
				zap.Error(err))
			return OutcomeTerminated
		}

		sample := SystemSample{
			Timestamp:     time.Now(),
			CPUPercent:    curr.CPUPercent,
			MemoryPercent: curr.MemoryPercent,
			DiskPercent:   curr.DiskPercent,
		}
		// A delta needs a valid reading on both sides. The baseline is
		// seeded by the first valid reading, which itself emits zero;
		// a failed reading neither produces a delta nor disturbs the
		// existing baseline.
		if netPrimed && curr.NetValid {
			sample.NetSentDelta = Delta(prev.NetSent, curr.NetSent)
			sample.NetRecvDelta = Delta(prev.NetRecv, curr.NetRecv)
		}
		if diskPrimed && curr.DiskIOValid {
			sample.DiskReadDelta = Delta(prev.DiskRead, curr.DiskRead)
			sample.DiskWriteDelta = Delta(prev.DiskWrite, curr.DiskWrite)
		}
		if curr.NetValid {
			prev.NetSent, prev.NetRecv = curr.NetSent, curr.NetRecv
			netPrimed = true
		}
		if curr.DiskIOValid {
			prev.DiskRead, prev.DiskWrite = curr.DiskRead, curr.DiskWrite
			diskPrimed = true
		}

		if err := s.sink.WriteSystemSample(sample); err != nil {
			s.logger.Warn("sink write failed", zap.Error(err))
		}

		if outcome, done := s.sleep(ctx); done {
			return outcome
		}
	}
}

// sampleProcesses is the shared loop behind single and multi process
// watching.
func (s *Session) sampleProcesses(ctx context.Context, targets []*target) Outcome {
	defer s.closeSink()

	start := time.Now()
	first := true
	var prevNetSent, prevNetRecv uint64
	netPrimed := false

	for {
		if outcome, done := s.tickBoundary(ctx, start); done {
			return outcome
		}

		now := time.Now()

		// One system-wide network reading per tick, shared by every
		// target's sample. The baseline is seeded by the first reading
		// that succeeds; until then deltas stay zero, so a failed first
		// read cannot surface the whole cumulative counter later.
		var netSentDelta, netRecvDelta uint64
		if sent, recv, err := s.provider.NetCounters(); err == nil {
			if netPrimed {
				netSentDelta = Delta(prevNetSent, sent)
				netRecvDelta = Delta(prevNetRecv, recv)
			}
			prevNetSent, prevNetRecv = sent, recv
			netPrimed = true
		}

		live := 0
		for _, t := range targets {
			if !t.alive {
				continue
			}

			curr, err := s.provider.ProcessCounters(t.pid)
			if err != nil {
				t.alive = false
				s.logTargetLost(t, err)
				continue
			}

			sample := Sample{
				Timestamp:     now,
				PID:           t.pid,
				Name:          t.name,
				CPUPercent:    curr.CPUPercent,
				MemoryPercent: curr.MemoryPercent,
				NumThreads:    curr.NumThreads,
			}
			if !first {
				sample.IOReadDelta = Delta(t.prevIORead, curr.IORead)
				sample.IOWriteDelta = Delta(t.prevIOWrite, curr.IOWrite)
			}
			sample.NetSentDelta = netSentDelta
			sample.NetRecvDelta = netRecvDelta
			t.prevIORead = curr.IORead
			t.prevIOWrite = curr.IOWrite

			if err := s.sink.WriteSample(sample); err != nil {
				s.logger.Warn("sink write failed", zap.Error(err))
			}
			live++
		}
		first = false

		if live == 0 {
			s.logger.Warn("all targets terminated",
				zap.String("operation", "monitor_process"),
				zap.String("outcome", OutcomeTerminated.String()))
			return OutcomeTerminated
		}

		if outcome, done := s.sleep(ctx); done {
			return outcome
		}
	}
}

// tickBoundary applies the cancellation and duration checks that gate
// every tick.
func (s *Session) tickBoundary(ctx context.Context, start time.Time) (Outcome, bool) {
	select {
	case <-ctx.Done():
		return OutcomeCancelled, true
	default:
	}
	if s.duration > 0 && time.Since(start) >= s.duration {
		return OutcomeCompleted, true
	}
	return 0, false
}

// sleep blocks until the next tick or cancellation. The interval is
// wall-clock: a tick that overruns simply starts the next one late,
// with no catch-up.
func (s *Session) sleep(ctx context.Context) (Outcome, bool) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return OutcomeCancelled, true
	case <-timer.C:
		return 0, false
	}
}

// resolve locates targets for one pattern: numeric means exact PID,
// anything else is a case-insensitive name substring.
func (s *Session) resolve(pattern string, firstOnly bool) []*target {
	if pid, err := strconv.ParseInt(pattern, 10, 32); err == nil {
		info, err := s.provider.FindByPID(int32(pid))
		if err != nil {
			s.logger.Warn("target did not resolve",
				zap.String("pattern", pattern),
				zap.Error(err))
			return nil
		}
		return []*target{{pid: info.PID, name: info.Name, pattern: pattern, alive: true}}
	}

	matches, err := s.provider.FindByName(pattern)
	if err != nil {
		s.logger.Warn("target did not resolve",
			zap.String("pattern", pattern),
			zap.Error(err))
		return nil
	}
	var targets []*target
	for _, m := range matches {
		targets = append(targets, &target{pid: m.PID, name: m.Name, pattern: pattern, alive: true})
		if firstOnly {
			break
		}
	}
	return targets
}

func (s *Session) noTargets(pattern string) Outcome {
	s.closeSink()
	s.logger.Warn("no targets resolved",
		zap.String("operation", "monitor_process"),
		zap.String("target", pattern),
		zap.String("outcome", OutcomeTerminated.String()))
	return OutcomeTerminated
}

func (s *Session) logTargetLost(t *target, err error) {
	cause := "error"
	switch {
	case errors.Is(err, ErrNotFound):
		cause = "terminated"
	case errors.Is(err, ErrAccessDenied):
		cause = "access denied"
	}
	s.logger.Warn("target lost",
		zap.Int32("pid", t.pid),
		zap.String("name", t.name),
		zap.String("cause", cause))
}

func (s *Session) closeSink() {
	if s.sink == nil {
		return
	}
	if err := s.sink.Close(); err != nil {
		s.logger.Warn("sink close failed", zap.Error(err))
	}
}
