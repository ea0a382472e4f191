package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/internal/export"
	"github.com/procsight/procsight/internal/inspect"
	"github.com/procsight/procsight/internal/netstat"
	"github.com/procsight/procsight/internal/privilege"
	"github.com/procsight/procsight/internal/service"
	"github.com/procsight/procsight/pkg/models"
)

var portsCmd = &cobra.Command{
	Use:   "ports [port]",
	Short: "List network sockets, or find what owns a port",
	Long: `Ports lists the socket table. With a port argument it shows only the
sockets bound to that port and the processes owning them. Ports below
1024 are marked with an asterisk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sockets := netstat.New(logger)

		if len(args) == 1 {
			port, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			owners, err := sockets.PortOwner(uint32(port))
			if err != nil {
				return err
			}
			if len(owners) == 0 {
				out.Info(fmt.Sprintf("port %d is free", port))
				return nil
			}
			out.Connections(owners)
			return nil
		}

		proto, _ := cmd.Flags().GetString("proto")
		listening, _ := cmd.Flags().GetBool("listening")
		if !privilege.Elevated() {
			out.Info("socket owners may be incomplete without administrative rights")
		}

		conns, err := sockets.List(proto, listening)
		if err != nil {
			return err
		}
		out.Connections(conns)
		return nil
	},
}

var portsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-interface network statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		nics, err := netstat.New(logger).InterfaceStats()
		if err != nil {
			return err
		}
		out.Interfaces(nics)
		return nil
	},
}

var portsFreeCmd = &cobra.Command{
	Use:   "free",
	Short: "Find a free TCP port",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetUint32("start")
		end, _ := cmd.Flags().GetUint32("end")

		port, err := netstat.New(logger).FreePort(start, end)
		if err != nil {
			return err
		}
		fmt.Println(port)
		return nil
	},
}

var portsCheckCmd = &cobra.Command{
	Use:   "check <port>",
	Short: "Check whether a TCP port is available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port %q", args[0])
		}
		host, _ := cmd.Flags().GetString("host")

		if netstat.New(logger).CheckPort(host, uint32(port)) {
			fmt.Printf("port %d is available\n", port)
			return nil
		}
		out.Warn(fmt.Sprintf("port %d is in use", port))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a host snapshot to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			return fmt.Errorf("--output is required")
		}
		format, _ := cmd.Flags().GetString("format")

		snap := buildSnapshot(cmd)
		if err := export.WriteFile(path, format, snap); err != nil {
			return err
		}
		fmt.Printf("snapshot written to %s\n", path)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print a host snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return export.WriteJSON(os.Stdout, buildSnapshot(cmd))
	},
}

// buildSnapshot assembles the exporter from whatever subsystems the
// flags ask for. A missing service backend just leaves that section
// out.
func buildSnapshot(cmd *cobra.Command) *models.Snapshot {
	processes, _ := cmd.Flags().GetBool("processes")
	connections, _ := cmd.Flags().GetBool("connections")
	services, _ := cmd.Flags().GetBool("services")

	var backend service.Backend
	if services {
		backend = service.Select(logger, service.Options{
			QueryTimeout: cfg.ServiceQueryTimeout,
		})
	}

	exporter := export.NewExporter(logger, inspect.NewInspector(logger), netstat.New(logger), backend)

	ctx, cancel := signalContext()
	defer cancel()
	return exporter.Build(ctx, export.Options{
		Processes:   processes,
		TopCount:    cfg.TopCount,
		Connections: connections,
		Services:    services,
	})
}

func init() {
	portsCmd.Flags().BoolP("listening", "l", false, "Show only listening sockets")
	portsCmd.Flags().StringP("proto", "p", "all", "Protocol filter (tcp, udp, all)")
	portsFreeCmd.Flags().Uint32("start", 1024, "First port to try")
	portsFreeCmd.Flags().Uint32("end", 65535, "Last port to try")
	portsCheckCmd.Flags().String("host", "localhost", "Host to check")
	portsCmd.AddCommand(portsStatsCmd)
	portsCmd.AddCommand(portsFreeCmd)
	portsCmd.AddCommand(portsCheckCmd)

	for _, cmd := range []*cobra.Command{exportCmd, snapshotCmd} {
		cmd.Flags().Bool("processes", true, "Include the process table")
		cmd.Flags().Bool("connections", false, "Include the socket table")
		cmd.Flags().Bool("services", false, "Include the service table")
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file path")
	exportCmd.Flags().StringP("format", "f", "json", "Output format (json, csv)")

	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
}
