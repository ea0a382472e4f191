package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procsight/procsight/internal/config"
	"github.com/procsight/procsight/internal/logging"
	"github.com/procsight/procsight/internal/render"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfg    *config.Config
	logger *zap.Logger
	out    *render.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "procsight",
	Short: "Process, socket and service inspection",
	Long:  `ProcSight - inspect and control processes, sockets and services across Linux, macOS and Windows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			cfg.NoColor = true
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.LogLevel = level
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			// Log dir may be unwritable without elevation; keep going
			// with console logging only.
			logger, err = logging.New(cfg.LogLevel, "")
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
		}
		out = render.New(os.Stdout, cfg.NoColor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ProcSight %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
