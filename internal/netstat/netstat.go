// Package netstat lists network sockets and maps listening ports back
// to their owning processes.
package netstat

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/procsight/procsight/pkg/models"
)

// privilegedPortMax is the last port reserved for privileged bindings.
const privilegedPortMax = 1023

// checkTimeout bounds one connect attempt in CheckPort.
const checkTimeout = time.Second

// Netstat reads the socket table.
type Netstat struct {
	logger *zap.Logger
	conns  func(kind string) ([]psnet.ConnectionStat, error)
	name   func(pid int32) string
	nics   func(pernic bool) ([]psnet.IOCountersStat, error)
	listen func(network, addr string) (net.Listener, error)
	dial   func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New creates a Netstat with the given logger.
func New(logger *zap.Logger) *Netstat {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Netstat{
		logger: logger,
		conns:  psnet.Connections,
		name:   processName,
		nics:   psnet.IOCounters,
		listen: net.Listen,
		dial:   net.DialTimeout,
	}
}

// List returns sockets of the given kind ("tcp", "udp", or "all"),
// optionally restricted to listening sockets. Per-socket process name
// resolution degrades to an empty name when the PID is unreadable.
func (n *Netstat) List(kind string, listeningOnly bool) ([]models.ConnectionInfo, error) {
	if kind == "" {
		kind = "all"
	}
	stats, err := n.conns(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	var out []models.ConnectionInfo
	for _, stat := range stats {
		conn := n.convert(stat)
		if listeningOnly && !isListening(conn) {
			continue
		}
		out = append(out, conn)
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].LocalPort != out[b].LocalPort {
			return out[a].LocalPort < out[b].LocalPort
		}
		return out[a].Proto < out[b].Proto
	})
	return out, nil
}

// PortOwner returns the sockets bound to the given local port, with
// their owning processes resolved. An empty result means the port is
// free.
func (n *Netstat) PortOwner(port uint32) ([]models.ConnectionInfo, error) {
	all, err := n.List("all", false)
	if err != nil {
		return nil, err
	}
	var out []models.ConnectionInfo
	for _, conn := range all {
		if conn.LocalPort == port {
			out = append(out, conn)
		}
	}
	return out, nil
}

// InterfaceStats returns cumulative I/O counters per network
// interface.
func (n *Netstat) InterfaceStats() ([]models.InterfaceMetrics, error) {
	counters, err := n.nics(true)
	if err != nil {
		return nil, fmt.Errorf("failed to read interface counters: %w", err)
	}
	var out []models.InterfaceMetrics
	for _, c := range counters {
		out = append(out, models.InterfaceMetrics{
			Name:        c.Name,
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
			ErrorsIn:    c.Errin,
			ErrorsOut:   c.Errout,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// FreePort scans [start, end] and returns the first port that can be
// bound on localhost, or an error when the whole range is taken.
func (n *Netstat) FreePort(start, end uint32) (uint32, error) {
	if start == 0 {
		start = 1024
	}
	if end == 0 || end > 65535 {
		end = 65535
	}
	if start > end {
		return 0, fmt.Errorf("invalid port range %d-%d", start, end)
	}
	for port := start; port <= end; port++ {
		l, err := n.listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in %d-%d", start, end)
}

// CheckPort reports whether host:port is available, meaning nothing
// answered a bounded connect attempt. A successful connection means
// the port is in use.
func (n *Netstat) CheckPort(host string, port uint32) bool {
	if host == "" {
		host = "localhost"
	}
	conn, err := n.dial("tcp", fmt.Sprintf("%s:%d", host, port), checkTimeout)
	if err != nil {
		return true
	}
	conn.Close()
	return false
}

func (n *Netstat) convert(stat psnet.ConnectionStat) models.ConnectionInfo {
	conn := models.ConnectionInfo{
		Proto:      protoName(stat.Type, stat.Family),
		LocalAddr:  stat.Laddr.IP,
		LocalPort:  stat.Laddr.Port,
		RemoteAddr: stat.Raddr.IP,
		RemotePort: stat.Raddr.Port,
		Status:     stat.Status,
		PID:        stat.Pid,
		Privileged: stat.Laddr.Port > 0 && stat.Laddr.Port <= privilegedPortMax,
	}
	if stat.Pid > 0 {
		conn.Process = n.name(stat.Pid)
	}
	return conn
}

// isListening reports whether a socket accepts inbound traffic. UDP
// sockets carry no state, so an unbound remote side counts.
func isListening(conn models.ConnectionInfo) bool {
	if strings.HasPrefix(conn.Proto, "udp") {
		return conn.RemotePort == 0
	}
	return conn.Status == "LISTEN"
}

// protoName maps the socket type and address family to the familiar
// tcp/tcp6/udp/udp6 labels.
func protoName(sockType, family uint32) string {
	proto := "unknown"
	switch sockType {
	case 1: // SOCK_STREAM
		proto = "tcp"
	case 2: // SOCK_DGRAM
		proto = "udp"
	}
	if family == 10 || family == 23 || family == 30 { // AF_INET6 per platform
		proto += "6"
	}
	return proto
}

func processName(pid int32) string {
	p, err := process.NewProcess(pid)
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}
