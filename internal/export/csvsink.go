package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/procsight/procsight/internal/monitor"
)

var (
	systemHeader  = []string{"timestamp", "cpu_percent", "memory_percent", "disk_percent", "net_sent", "net_recv"}
	processHeader = []string{"timestamp", "pid", "name", "cpu_percent", "memory_percent", "num_threads", "io_read", "io_write", "net_sent", "net_recv"}
)

// CSVSink appends monitoring samples to a CSV stream, one row per
// sample. The header row is written before the first sample and
// matches the sample kind, so a sink should receive only one kind per
// run.
type CSVSink struct {
	w       io.WriteCloser
	csv     *csv.Writer
	started bool
}

// NewCSVSink wraps an open stream. The sink takes ownership and closes
// it when the session ends.
func NewCSVSink(w io.WriteCloser) *CSVSink {
	return &CSVSink{w: w, csv: csv.NewWriter(w)}
}

// OpenCSVSink opens or creates path for appending. On a fresh file the
// header still gets written; on an existing one the rows just continue.
func OpenCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	sink := NewCSVSink(f)
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		sink.started = true
	}
	return sink, nil
}

// WriteSample appends one process sample row.
func (s *CSVSink) WriteSample(sample monitor.Sample) error {
	if err := s.ensureHeader(processHeader); err != nil {
		return err
	}
	row := []string{
		sample.Timestamp.Format(time.RFC3339),
		strconv.FormatInt(int64(sample.PID), 10),
		sample.Name,
		formatPct(sample.CPUPercent),
		formatPct(sample.MemoryPercent),
		strconv.FormatInt(int64(sample.NumThreads), 10),
		strconv.FormatUint(sample.IOReadDelta, 10),
		strconv.FormatUint(sample.IOWriteDelta, 10),
		strconv.FormatUint(sample.NetSentDelta, 10),
		strconv.FormatUint(sample.NetRecvDelta, 10),
	}
	return s.writeRow(row)
}

// WriteSystemSample appends one system sample row.
func (s *CSVSink) WriteSystemSample(sample monitor.SystemSample) error {
	if err := s.ensureHeader(systemHeader); err != nil {
		return err
	}
	row := []string{
		sample.Timestamp.Format(time.RFC3339),
		formatPct(sample.CPUPercent),
		formatPct(sample.MemoryPercent),
		formatPct(sample.DiskPercent),
		strconv.FormatUint(sample.NetSentDelta, 10),
		strconv.FormatUint(sample.NetRecvDelta, 10),
	}
	return s.writeRow(row)
}

// Close flushes buffered rows and closes the underlying stream.
func (s *CSVSink) Close() error {
	s.csv.Flush()
	flushErr := s.csv.Error()
	closeErr := s.w.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (s *CSVSink) ensureHeader(header []string) error {
	if s.started {
		return nil
	}
	s.started = true
	return s.csv.Write(header)
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	// Flush per row so a killed session still leaves complete lines.
	s.csv.Flush()
	return s.csv.Error()
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
