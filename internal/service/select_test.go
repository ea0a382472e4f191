package service

import (
	"context"
	"testing"
)

func TestBackendFor(t *testing.T) {
	logger, _ := observedLogger()

	tests := []struct {
		goos string
		kind string
	}{
		{"linux", "systemd"},
		{"darwin", "launchd"},
		{"windows", "windows"},
	}
	for _, tt := range tests {
		b := backendFor(tt.goos, logger, Options{})
		if b == nil {
			t.Fatalf("expected a backend for %s", tt.goos)
		}
		if b.Kind() != tt.kind {
			t.Errorf("goos %s: expected kind %s, got %s", tt.goos, tt.kind, b.Kind())
		}
	}

	if b := backendFor("plan9", logger, Options{}); b != nil {
		t.Errorf("expected no backend for unsupported OS, got %s", b.Kind())
	}
}

// probeBackend counts availability probes so the selector contract can
// be checked without a real service manager.
type probeBackend struct {
	available bool
	probes    int
}

func (p *probeBackend) Kind() string { return "probe" }
func (p *probeBackend) IsAvailable() bool {
	p.probes++
	return p.available
}
func (p *probeBackend) ListServices(context.Context) []Record        { return nil }
func (p *probeBackend) Start(context.Context, string) bool           { return false }
func (p *probeBackend) Stop(context.Context, string) bool            { return false }
func (p *probeBackend) Restart(context.Context, string) bool         { return false }
func (p *probeBackend) Enable(context.Context, string) bool          { return false }
func (p *probeBackend) Disable(context.Context, string) bool         { return false }
func (p *probeBackend) Status(context.Context, string) *StatusReport { return nil }

func TestGateReturnsNilWhenProbeFails(t *testing.T) {
	probe := &probeBackend{available: false}
	if got := gate(probe); got != nil {
		t.Fatal("expected nil when the availability probe fails")
	}
	if probe.probes != 1 {
		t.Errorf("expected exactly one probe, got %d", probe.probes)
	}

	probe = &probeBackend{available: true}
	if got := gate(probe); got != probe {
		t.Fatal("expected the probed backend back when available")
	}
}

func TestGateNilBackend(t *testing.T) {
	if gate(nil) != nil {
		t.Fatal("expected nil through the gate")
	}
}

func TestSelectUnavailableSystemd(t *testing.T) {
	logger, _ := observedLogger()
	b := NewSystemd(logger, Options{})
	b.run = &fakeRunner{script: []scripted{failResult(127, "systemctl: command not found")}}

	if gate(b) != nil {
		t.Fatal("expected nil when systemctl probe fails")
	}
}
