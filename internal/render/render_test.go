package render

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/procsight/procsight/internal/monitor"
	"github.com/procsight/procsight/pkg/models"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{3221225472, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestServicesTable(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	r.Services([]models.ServiceInfo{
		{Name: "nginx.service", DisplayName: "nginx web server", State: "Running", Backend: "SystemD"},
		{Name: "cron.service", State: "Stopped", Backend: "SystemD"},
	})

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "nginx.service") || !strings.Contains(lines[1], "Running") {
		t.Fatalf("row = %q", lines[1])
	}
	// no-color output must be free of escape sequences
	if strings.Contains(out, "\x1b[") {
		t.Fatal("ANSI escapes present with color disabled")
	}
}

func TestConnectionsTableMarksPrivileged(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	r.Connections([]models.ConnectionInfo{
		{Proto: "tcp", LocalAddr: "0.0.0.0", LocalPort: 80, Status: "LISTEN", PID: 100, Process: "nginx", Privileged: true},
		{Proto: "tcp", LocalAddr: "10.0.0.5", LocalPort: 51234, RemoteAddr: "93.184.216.34", RemotePort: 443, Status: "ESTABLISHED"},
	})

	out := buf.String()
	if !strings.Contains(out, "0.0.0.0:80 *") {
		t.Fatalf("privileged marker missing:\n%s", out)
	}
	if !strings.Contains(out, "93.184.216.34:443") {
		t.Fatalf("remote endpoint missing:\n%s", out)
	}
}

func TestProcessDetail(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	r.ProcessDetail(&models.ProcessInfo{
		PID:        42,
		PPID:       1,
		Name:       "nginx",
		Username:   "www-data",
		CPUPercent: 2.5,
		MemoryRSS:  1048576,
		NumThreads: 4,
		Children:   []int32{43, 44},
	})

	out := buf.String()
	for _, want := range []string{"PID", "42", "nginx", "www-data", "1.0 MiB", "43, 44"} {
		if !strings.Contains(out, want) {
			t.Fatalf("detail output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleSinkLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(New(&buf, true))

	ts := time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC)
	if err := sink.WriteSample(monitor.Sample{Timestamp: ts, PID: 42, Name: "nginx", CPUPercent: 2.5, NumThreads: 4}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := sink.WriteSystemSample(monitor.SystemSample{Timestamp: ts, CPUPercent: 10, MemoryPercent: 40, DiskPercent: 55}); err != nil {
		t.Fatalf("WriteSystemSample: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "12:30:45") || !strings.Contains(lines[0], "pid=42") {
		t.Fatalf("process line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "disk= 55.0%") {
		t.Fatalf("system line = %q", lines[1])
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"nginx", 20, "nginx"},
		{"a-very-long-process-name", 10, "a-very-lo…"},
		{"диспетчер-задач", 8, "диспетч…"},
		{"日本語プロセス", 4, "日本語…"},
	}
	for _, tc := range cases {
		got := truncate(tc.in, tc.n)
		if got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) produced invalid UTF-8", tc.in, tc.n)
		}
	}
}
