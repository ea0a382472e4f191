package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/internal/config"
	"github.com/procsight/procsight/internal/export"
	"github.com/procsight/procsight/internal/monitor"
	"github.com/procsight/procsight/internal/render"
)

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Watch one process, or the whole system, live",
	Long: `Watch samples a process (by PID or name substring) once per interval
and prints one line per tick. Without a pattern it watches aggregate
system counters instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, duration, err := intervalFlags(cmd, cfg.WatchInterval, 0)
		if err != nil {
			return err
		}

		sink, err := sinkFlag(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		session := monitor.NewSession(monitor.NewSystemProvider(logger), sink, logger, interval, duration)
		var outcome monitor.Outcome
		if len(args) == 0 {
			outcome = session.WatchSystem(ctx)
		} else {
			outcome = session.WatchProcess(ctx, args[0])
		}
		return reportOutcome(outcome)
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor <pattern>...",
	Short: "Monitor several processes at once",
	Long: `Monitor samples every process matching any of the patterns. It keeps
running while at least one target is alive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, duration, err := intervalFlags(cmd, cfg.WatchInterval, 0)
		if err != nil {
			return err
		}

		sink, err := sinkFlag(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		session := monitor.NewSession(monitor.NewSystemProvider(logger), sink, logger, interval, duration)
		return reportOutcome(session.WatchProcesses(ctx, args...))
	},
}

var perflogCmd = &cobra.Command{
	Use:   "perflog",
	Short: "Record system performance to a CSV file",
	Long: `Perflog samples aggregate system counters at a slow interval and
appends them to a CSV file, suitable for long unattended runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, duration, err := intervalFlags(cmd, cfg.PerflogInterval, cfg.PerflogDuration)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = filepath.Join(config.GetLogDir(), "perflog.csv")
		}
		sink, err := export.OpenCSVSink(path)
		if err != nil {
			return err
		}
		out.Info(fmt.Sprintf("logging to %s every %s for %s", path, interval, duration))

		ctx, cancel := signalContext()
		defer cancel()

		session := monitor.NewSession(monitor.NewSystemProvider(logger), sink, logger, interval, duration)
		return reportOutcome(session.WatchSystem(ctx))
	},
}

// intervalFlags reads --interval and --duration with per-command
// defaults. Sub-second intervals are rejected: the counters this tool
// reads do not move meaningfully faster than that.
func intervalFlags(cmd *cobra.Command, defInterval, defDuration time.Duration) (time.Duration, time.Duration, error) {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval == 0 {
		interval = defInterval
	}
	if interval < time.Second {
		return 0, 0, fmt.Errorf("interval %s is below the 1s minimum", interval)
	}
	duration, _ := cmd.Flags().GetDuration("duration")
	if duration == 0 {
		duration = defDuration
	}
	return interval, duration, nil
}

// sinkFlag returns a CSV sink when --csv is set, the console sink
// otherwise.
func sinkFlag(cmd *cobra.Command) (monitor.Sink, error) {
	path, _ := cmd.Flags().GetString("csv")
	if path == "" {
		return render.NewConsoleSink(out), nil
	}
	return export.OpenCSVSink(path)
}

func reportOutcome(outcome monitor.Outcome) error {
	switch outcome {
	case monitor.OutcomeTerminated:
		out.Warn("monitoring stopped: all targets gone")
	case monitor.OutcomeCancelled:
		out.Info("monitoring cancelled")
	}
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{watchCmd, monitorCmd} {
		cmd.Flags().DurationP("interval", "i", 0, "Sampling interval (minimum 1s)")
		cmd.Flags().DurationP("duration", "d", 0, "Total run time (0 = until stopped)")
		cmd.Flags().String("csv", "", "Append samples to a CSV file instead of printing")
	}
	perflogCmd.Flags().DurationP("interval", "i", 0, "Sampling interval (minimum 1s)")
	perflogCmd.Flags().DurationP("duration", "d", 0, "Total run time (0 = until stopped)")
	perflogCmd.Flags().StringP("output", "o", "", "CSV file path")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(perflogCmd)
}
