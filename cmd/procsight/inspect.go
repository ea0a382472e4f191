package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/internal/inspect"
	"github.com/procsight/procsight/pkg/models"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <pattern>",
	Short: "Search processes by name or command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inspector := inspect.NewInspector(logger)
		matches, err := inspector.Search(args[0])
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			out.Info(fmt.Sprintf("no processes match %q", args[0]))
			return nil
		}
		out.Processes(matches)
		return nil
	},
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the heaviest processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		if count <= 0 {
			count = cfg.TopCount
		}
		byMemory, _ := cmd.Flags().GetBool("memory")

		inspector := inspect.NewInspector(logger)
		procs, err := inspector.Top(count, byMemory)
		if err != nil {
			return err
		}
		out.Processes(procs)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <pid>",
	Short: "Show full detail for one process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		inspector := inspect.NewInspector(logger)
		info, err := inspector.Info(pid)
		if err != nil {
			return err
		}
		out.ProcessDetail(info)
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate a process",
	Long: `Kill sends a graceful termination signal after an interactive
confirmation. --force sends SIGKILL; --yes skips the prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		yes, _ := cmd.Flags().GetBool("yes")

		confirm := func(p models.ProcessInfo) bool {
			if yes {
				return true
			}
			fmt.Printf("terminate %s (pid %d)? [y/N] ", p.Name, p.PID)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			return answer == "y" || answer == "yes"
		}

		inspector := inspect.NewInspector(logger)
		killed, err := inspector.Terminate(pid, force, confirm)
		if err != nil {
			return err
		}
		if !killed {
			out.Info("aborted")
			return nil
		}
		fmt.Printf("pid %d terminated\n", pid)
		return nil
	},
}

func parsePID(s string) (int32, error) {
	pid, err := strconv.ParseInt(s, 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return int32(pid), nil
}

func init() {
	topCmd.Flags().IntP("count", "n", 0, "Number of processes to show")
	topCmd.Flags().BoolP("memory", "m", false, "Rank by memory instead of CPU")
	killCmd.Flags().BoolP("force", "f", false, "Kill immediately instead of terminating gracefully")
	killCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(killCmd)
}
