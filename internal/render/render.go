// Package render formats tables and live sample lines for the console.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/procsight/procsight/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Renderer writes formatted output. With NoColor set every style
// degrades to plain text.
type Renderer struct {
	w       io.Writer
	noColor bool
}

// New creates a Renderer writing to w.
func New(w io.Writer, noColor bool) *Renderer {
	return &Renderer{w: w, noColor: noColor}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return s.Render(text)
}

// Warn prints a highlighted warning line.
func (r *Renderer) Warn(msg string) {
	fmt.Fprintln(r.w, r.style(warnStyle, msg))
}

// Info prints a dim informational line.
func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.w, r.style(dimStyle, msg))
}

// Services prints the service table.
func (r *Renderer) Services(services []models.ServiceInfo) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, r.style(headerStyle, "NAME\tSTATE\tBACKEND\tDISPLAY NAME"))
	for _, svc := range services {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			svc.Name, r.state(svc.State), svc.Backend, svc.DisplayName)
	}
	tw.Flush()
}

func (r *Renderer) state(state string) string {
	switch state {
	case "Running":
		return r.style(runningStyle, state)
	case "Stopped":
		return r.style(stoppedStyle, state)
	default:
		return r.style(unknownStyle, state)
	}
}

// Processes prints the process table.
func (r *Renderer) Processes(procs []models.ProcessInfo) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, r.style(headerStyle, "PID\tNAME\tCPU%\tMEM%\tRSS\tTHREADS\tUSER"))
	for _, p := range procs {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%s\t%d\t%s\n",
			p.PID, p.Name, p.CPUPercent, p.MemoryPercent,
			FormatBytes(p.MemoryRSS), p.NumThreads, p.Username)
	}
	tw.Flush()
}

// Connections prints the socket table.
func (r *Renderer) Connections(conns []models.ConnectionInfo) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, r.style(headerStyle, "PROTO\tLOCAL\tREMOTE\tSTATE\tPID\tPROCESS"))
	for _, c := range conns {
		local := fmt.Sprintf("%s:%d", c.LocalAddr, c.LocalPort)
		if c.Privileged {
			local += " *"
		}
		remote := "-"
		if c.RemoteAddr != "" {
			remote = fmt.Sprintf("%s:%d", c.RemoteAddr, c.RemotePort)
		}
		pid := "-"
		if c.PID > 0 {
			pid = fmt.Sprintf("%d", c.PID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Proto, local, remote, c.Status, pid, c.Process)
	}
	tw.Flush()
}

// Interfaces prints the per-NIC statistics table.
func (r *Renderer) Interfaces(nics []models.InterfaceMetrics) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, r.style(headerStyle, "INTERFACE\tSENT\tRECEIVED\tPKTS TX\tPKTS RX\tERR IN\tERR OUT"))
	for _, nic := range nics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			nic.Name, FormatBytes(nic.BytesSent), FormatBytes(nic.BytesRecv),
			nic.PacketsSent, nic.PacketsRecv, nic.ErrorsIn, nic.ErrorsOut)
	}
	tw.Flush()
}

// ProcessDetail prints the full record for one process.
func (r *Renderer) ProcessDetail(p *models.ProcessInfo) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	write := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", r.style(dimStyle, label), value)
	}
	write("PID", fmt.Sprintf("%d", p.PID))
	write("Name", p.Name)
	if p.PPID > 0 {
		write("Parent PID", fmt.Sprintf("%d", p.PPID))
	}
	if p.Exe != "" {
		write("Executable", p.Exe)
	}
	if p.Cmdline != "" {
		write("Command line", p.Cmdline)
	}
	if p.Username != "" {
		write("User", p.Username)
	}
	if p.Status != "" {
		write("Status", p.Status)
	}
	write("CPU", fmt.Sprintf("%.1f%%", p.CPUPercent))
	write("Memory", fmt.Sprintf("%.1f%% (%s)", p.MemoryPercent, FormatBytes(p.MemoryRSS)))
	write("Threads", fmt.Sprintf("%d", p.NumThreads))
	if p.OpenFiles > 0 {
		write("Open files", fmt.Sprintf("%d", p.OpenFiles))
	}
	if p.Connections > 0 {
		write("Connections", fmt.Sprintf("%d", p.Connections))
	}
	if len(p.Children) > 0 {
		var kids []string
		for _, pid := range p.Children {
			kids = append(kids, fmt.Sprintf("%d", pid))
		}
		write("Children", strings.Join(kids, ", "))
	}
	tw.Flush()
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
