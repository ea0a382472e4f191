package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/procsight/procsight/pkg/models"
)

// WriteJSON serializes the snapshot as indented JSON.
func WriteJSON(w io.Writer, snap *models.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteCSV flattens the snapshot's process table into CSV. The
// header-only output for a snapshot without processes is intentional:
// downstream tooling still gets a parseable file.
func WriteCSV(w io.Writer, snap *models.Snapshot) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "pid", "name", "cpu_percent", "memory_percent", "memory_rss", "num_threads", "username"}
	if err := cw.Write(header); err != nil {
		return err
	}
	ts := snap.Timestamp.Format(time.RFC3339)
	for _, p := range snap.Processes {
		row := []string{
			ts,
			strconv.FormatInt(int64(p.PID), 10),
			p.Name,
			formatPct(p.CPUPercent),
			formatPct(p.MemoryPercent),
			strconv.FormatUint(p.MemoryRSS, 10),
			strconv.FormatInt(int64(p.NumThreads), 10),
			p.Username,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the snapshot to path, choosing the format from the
// format argument ("json" or "csv").
func WriteFile(path, format string, snap *models.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case "csv":
		return WriteCSV(f, snap)
	case "json", "":
		return WriteJSON(f, snap)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
