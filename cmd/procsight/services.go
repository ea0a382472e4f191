package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/internal/privilege"
	"github.com/procsight/procsight/internal/service"
	"github.com/procsight/procsight/pkg/models"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List and control system services",
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all services",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := selectBackend()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		records := backend.ListServices(ctx)
		if runningOnly, _ := cmd.Flags().GetBool("running"); runningOnly {
			var filtered []service.Record
			for _, rec := range records {
				if rec.State == service.StateRunning {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		var rows []models.ServiceInfo
		for _, rec := range records {
			rows = append(rows, models.ServiceInfo{
				Name:        rec.Name,
				DisplayName: rec.DisplayName,
				State:       string(rec.State),
				Backend:     rec.Kind,
			})
		}
		out.Services(rows)
		return nil
	},
}

var servicesStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show raw status output for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := selectBackend()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		report := backend.Status(ctx, args[0])
		if report == nil {
			return fmt.Errorf("status query failed for %q", args[0])
		}
		if report.Stdout != "" {
			fmt.Print(report.Stdout)
		}
		if report.Stderr != "" {
			fmt.Print(report.Stderr)
		}
		for key, value := range report.Extra {
			fmt.Printf("%s: %s\n", key, value)
		}
		if report.ExitCode != 0 {
			return fmt.Errorf("%s exited with code %d", backend.Kind(), report.ExitCode)
		}
		return nil
	},
}

// serviceActionCmd builds one mutating subcommand. All five share the
// same shape: resolve backend, warn if unprivileged, run the action,
// translate a false outcome into a non-zero exit.
func serviceActionCmd(verb string, action func(service.Backend, context.Context, string) bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: capitalize(verb) + " a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := selectBackend()
			if err != nil {
				return err
			}
			if !privilege.Elevated() {
				out.Warn("running without administrative rights; the service manager may refuse")
			}
			ctx, cancel := signalContext()
			defer cancel()

			if !action(backend, ctx, args[0]) {
				return fmt.Errorf("failed to %s %q", verb, args[0])
			}
			fmt.Printf("%s: %s ok\n", args[0], verb)
			return nil
		},
	}
}

func selectBackend() (service.Backend, error) {
	backend := service.Select(logger, service.Options{
		QueryTimeout:  cfg.ServiceQueryTimeout,
		ActionTimeout: cfg.ServiceActionTimeout,
	})
	if backend == nil {
		return nil, fmt.Errorf("no supported service manager on this system")
	}
	return backend, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func init() {
	servicesCmd.AddCommand(servicesListCmd)
	servicesCmd.AddCommand(servicesStatusCmd)
	servicesCmd.AddCommand(serviceActionCmd("start", service.Backend.Start))
	servicesCmd.AddCommand(serviceActionCmd("stop", service.Backend.Stop))
	servicesCmd.AddCommand(serviceActionCmd("restart", service.Backend.Restart))
	servicesCmd.AddCommand(serviceActionCmd("enable", service.Backend.Enable))
	servicesCmd.AddCommand(serviceActionCmd("disable", service.Backend.Disable))

	servicesListCmd.Flags().Bool("running", false, "Show only running services")

	rootCmd.AddCommand(servicesCmd)
}
