package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeProvider serves canned counters and lets a test flip a process
// dead mid-run.
type fakeProvider struct {
	mu           sync.Mutex
	procs        map[int32]*fakeProc
	sysSeq       []SystemCounters
	sysCalls     int
	netSent      uint64
	netRecv      uint64
	netStep      uint64
	netFail      bool
	netFailFirst int
	netCalls     int
}

type fakeProc struct {
	name    string
	err     error
	ioRead  uint64
	ioWrite uint64
	ioStep  uint64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{procs: map[int32]*fakeProc{}}
}

func (p *fakeProvider) addProc(pid int32, name string) *fakeProc {
	p.mu.Lock()
	defer p.mu.Unlock()
	fp := &fakeProc{name: name}
	p.procs[pid] = fp
	return fp
}

func (p *fakeProvider) kill(pid int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.procs[pid].err = ErrNotFound
}

func (p *fakeProvider) FindByPID(pid int32) (TargetInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fp, ok := p.procs[pid]
	if !ok {
		return TargetInfo{}, ErrNotFound
	}
	return TargetInfo{PID: pid, Name: fp.name}, nil
}

func (p *fakeProvider) FindByName(pattern string) ([]TargetInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []TargetInfo
	for pid, fp := range p.procs {
		if strings.Contains(strings.ToLower(fp.name), strings.ToLower(pattern)) {
			out = append(out, TargetInfo{PID: pid, Name: fp.name})
		}
	}
	return out, nil
}

func (p *fakeProvider) ProcessCounters(pid int32) (ProcCounters, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fp, ok := p.procs[pid]
	if !ok {
		return ProcCounters{}, ErrNotFound
	}
	if fp.err != nil {
		return ProcCounters{}, fp.err
	}
	fp.ioRead += fp.ioStep
	fp.ioWrite += fp.ioStep
	return ProcCounters{
		CPUPercent:    12.5,
		MemoryPercent: 3.0,
		NumThreads:    4,
		IORead:        fp.ioRead,
		IOWrite:       fp.ioWrite,
	}, nil
}

func (p *fakeProvider) SystemCounters() (SystemCounters, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sysSeq) == 0 {
		return SystemCounters{CPUPercent: 10, MemoryPercent: 20, DiskPercent: 30, NetValid: true, DiskIOValid: true}, nil
	}
	i := p.sysCalls
	if i >= len(p.sysSeq) {
		i = len(p.sysSeq) - 1
	}
	p.sysCalls++
	return p.sysSeq[i], nil
}

func (p *fakeProvider) NetCounters() (uint64, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.netCalls++
	if p.netFail || p.netCalls <= p.netFailFirst {
		return 0, 0, ErrAccessDenied
	}
	p.netSent += p.netStep
	p.netRecv += p.netStep
	return p.netSent, p.netRecv, nil
}

// captureSink records everything written and whether Close ran.
type captureSink struct {
	mu      sync.Mutex
	samples []Sample
	system  []SystemSample
	closed  bool
}

func (c *captureSink) WriteSample(s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	return nil
}

func (c *captureSink) WriteSystemSample(s SystemSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = append(c.system, s)
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) sampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func TestWatchProcessCompletesWithinBudget(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(42, "nginx")
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 10*time.Millisecond, 55*time.Millisecond)

	outcome := session.WatchProcess(context.Background(), "42")
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
	// ceil(55ms / 10ms) = 6 ticks at most; at least one always runs.
	got := sink.sampleCount()
	if got < 1 || got > 6 {
		t.Fatalf("sample count = %d, want between 1 and 6", got)
	}
}

func TestWatchProcessFirstTickHasZeroDeltas(t *testing.T) {
	provider := newFakeProvider()
	fp := provider.addProc(42, "nginx")
	fp.ioStep = 1000
	provider.netStep = 500
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 50*time.Millisecond)

	if outcome := session.WatchProcess(context.Background(), "42"); outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if sink.sampleCount() < 2 {
		t.Fatalf("need at least two samples, got %d", sink.sampleCount())
	}

	first := sink.samples[0]
	if first.IOReadDelta != 0 || first.IOWriteDelta != 0 || first.NetSentDelta != 0 || first.NetRecvDelta != 0 {
		t.Fatalf("first sample carries deltas: %+v", first)
	}
	second := sink.samples[1]
	if second.IOReadDelta != 1000 {
		t.Fatalf("second IOReadDelta = %d, want 1000", second.IOReadDelta)
	}
	if second.NetSentDelta != 500 {
		t.Fatalf("second NetSentDelta = %d, want 500", second.NetSentDelta)
	}
}

func TestWatchProcessTargetDeath(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(42, "nginx")
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, time.Minute)

	done := make(chan Outcome, 1)
	go func() {
		done <- session.WatchProcess(context.Background(), "42")
	}()

	time.Sleep(12 * time.Millisecond)
	provider.kill(42)

	select {
	case outcome := <-done:
		if outcome != OutcomeTerminated {
			t.Fatalf("outcome = %v, want %v", outcome, OutcomeTerminated)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after target died")
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
}

func TestWatchProcessesSurvivesPartialDeath(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(42, "nginx")
	provider.addProc(43, "postgres")
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 40*time.Millisecond)

	done := make(chan Outcome, 1)
	go func() {
		done <- session.WatchProcesses(context.Background(), "nginx", "postgres")
	}()

	time.Sleep(12 * time.Millisecond)
	provider.kill(42)

	outcome := <-done
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	sawLatePostgres := false
	for _, s := range sink.samples {
		if s.Name == "postgres" {
			sawLatePostgres = true
		}
	}
	if !sawLatePostgres {
		t.Fatal("surviving target produced no samples")
	}
}

func TestWatchProcessCancellation(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(42, "nginx")
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- session.WatchProcess(ctx, "42")
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		if outcome != OutcomeCancelled {
			t.Fatalf("outcome = %v, want %v", outcome, OutcomeCancelled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}
	if !sink.closed {
		t.Fatal("sink not closed after cancellation")
	}
}

func TestWatchProcessUnknownTarget(t *testing.T) {
	provider := newFakeProvider()
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 10*time.Millisecond, time.Minute)

	if outcome := session.WatchProcess(context.Background(), "no-such-proc"); outcome != OutcomeTerminated {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeTerminated)
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
	if sink.sampleCount() != 0 {
		t.Fatalf("samples written for unresolved target: %d", sink.sampleCount())
	}
}

func TestWatchSystemDeltas(t *testing.T) {
	provider := newFakeProvider()
	provider.sysSeq = []SystemCounters{
		{CPUPercent: 10, NetSent: 1000, NetRecv: 2000, DiskRead: 100, DiskWrite: 200, NetValid: true, DiskIOValid: true},
		{CPUPercent: 20, NetSent: 1500, NetRecv: 2600, DiskRead: 150, DiskWrite: 900, NetValid: true, DiskIOValid: true},
		{CPUPercent: 30, NetSent: 1200, NetRecv: 2700, DiskRead: 160, DiskWrite: 950, NetValid: true, DiskIOValid: true},
	}
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 50*time.Millisecond)

	if outcome := session.WatchSystem(context.Background()); outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if len(sink.system) < 3 {
		t.Fatalf("need at least three samples, got %d", len(sink.system))
	}

	first := sink.system[0]
	if first.NetSentDelta != 0 || first.DiskWriteDelta != 0 {
		t.Fatalf("first system sample carries deltas: %+v", first)
	}
	second := sink.system[1]
	if second.NetSentDelta != 500 || second.NetRecvDelta != 600 || second.DiskWriteDelta != 700 {
		t.Fatalf("second system sample deltas wrong: %+v", second)
	}
	// Counter went backwards between tick 2 and 3: delta clamps to zero.
	third := sink.system[2]
	if third.NetSentDelta != 0 {
		t.Fatalf("third NetSentDelta = %d, want 0 after counter reset", third.NetSentDelta)
	}
}

func TestWatchProcessNetBaselineAfterFailedFirstRead(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(42, "nginx")
	provider.netSent = 5_000_000_000
	provider.netRecv = 5_000_000_000
	provider.netStep = 400
	provider.netFailFirst = 1
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 60*time.Millisecond)

	if outcome := session.WatchProcess(context.Background(), "42"); outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if sink.sampleCount() < 3 {
		t.Fatalf("need at least three samples, got %d", sink.sampleCount())
	}

	// The reading that recovers seeds the baseline; it must not report
	// the whole since-boot counter as one tick's delta.
	second := sink.samples[1]
	if second.NetSentDelta != 0 {
		t.Fatalf("second NetSentDelta = %d, want 0 after failed first read", second.NetSentDelta)
	}
	third := sink.samples[2]
	if third.NetSentDelta != 400 || third.NetRecvDelta != 400 {
		t.Fatalf("third deltas = %d/%d, want 400/400", third.NetSentDelta, third.NetRecvDelta)
	}
}

func TestWatchSystemNetBaselineAfterFailedFirstRead(t *testing.T) {
	provider := newFakeProvider()
	provider.sysSeq = []SystemCounters{
		{CPUPercent: 10, DiskRead: 100, DiskWrite: 100, DiskIOValid: true},
		{CPUPercent: 20, NetSent: 5_000_000_000, NetRecv: 6_000_000_000, DiskRead: 150, DiskWrite: 160, NetValid: true, DiskIOValid: true},
		{CPUPercent: 30, NetSent: 5_000_000_700, NetRecv: 6_000_000_800, DiskRead: 170, DiskWrite: 190, NetValid: true, DiskIOValid: true},
	}
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 50*time.Millisecond)

	if outcome := session.WatchSystem(context.Background()); outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if len(sink.system) < 3 {
		t.Fatalf("need at least three samples, got %d", len(sink.system))
	}

	second := sink.system[1]
	if second.NetSentDelta != 0 || second.NetRecvDelta != 0 {
		t.Fatalf("second sample seeded from failed read: %+v", second)
	}
	// Disk counters were valid from the start, so their deltas flow
	// normally while net is still priming.
	if second.DiskReadDelta != 50 || second.DiskWriteDelta != 60 {
		t.Fatalf("second disk deltas = %d/%d, want 50/60", second.DiskReadDelta, second.DiskWriteDelta)
	}
	third := sink.system[2]
	if third.NetSentDelta != 700 || third.NetRecvDelta != 800 {
		t.Fatalf("third net deltas = %d/%d, want 700/800", third.NetSentDelta, third.NetRecvDelta)
	}
}

func TestResolveByNameFirstMatchOnly(t *testing.T) {
	provider := newFakeProvider()
	provider.addProc(10, "nginx-worker")
	sink := &captureSink{}
	session := NewSession(provider, sink, zaptest.NewLogger(t), 5*time.Millisecond, 30*time.Millisecond)

	if outcome := session.WatchProcess(context.Background(), "NGINX"); outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeCompleted)
	}
	if sink.sampleCount() == 0 {
		t.Fatal("no samples for name match")
	}
	if sink.samples[0].Name != "nginx-worker" {
		t.Fatalf("sample name = %q, want nginx-worker", sink.samples[0].Name)
	}
}
