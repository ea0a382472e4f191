package render

import (
	"fmt"

	"github.com/procsight/procsight/internal/monitor"
)

// ConsoleSink streams monitoring samples as formatted lines, one per
// tick, suitable for watching live in a terminal.
type ConsoleSink struct {
	r *Renderer
}

// NewConsoleSink creates a sink writing through the renderer.
func NewConsoleSink(r *Renderer) *ConsoleSink {
	return &ConsoleSink{r: r}
}

func (s *ConsoleSink) WriteSample(sample monitor.Sample) error {
	line := fmt.Sprintf("%s  pid=%-7d %-20s cpu=%5.1f%%  mem=%5.1f%%  thr=%-3d io r/w=%s/%s",
		sample.Timestamp.Format("15:04:05"),
		sample.PID,
		truncate(sample.Name, 20),
		sample.CPUPercent,
		sample.MemoryPercent,
		sample.NumThreads,
		FormatBytes(sample.IOReadDelta),
		FormatBytes(sample.IOWriteDelta))
	fmt.Fprintln(s.r.w, line)
	return nil
}

func (s *ConsoleSink) WriteSystemSample(sample monitor.SystemSample) error {
	line := fmt.Sprintf("%s  cpu=%5.1f%%  mem=%5.1f%%  disk=%5.1f%%  net tx/rx=%s/%s",
		sample.Timestamp.Format("15:04:05"),
		sample.CPUPercent,
		sample.MemoryPercent,
		sample.DiskPercent,
		FormatBytes(sample.NetSentDelta),
		FormatBytes(sample.NetRecvDelta))
	fmt.Fprintln(s.r.w, line)
	return nil
}

func (s *ConsoleSink) Close() error { return nil }

// truncate shortens s to at most n characters, cutting on rune
// boundaries so multibyte names stay valid UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
