package models

import "time"

// ProcessInfo represents one running process as shown by the inspect
// and top commands.
type ProcessInfo struct {
	PID           int32    `json:"pid"`
	PPID          int32    `json:"ppid,omitempty"`
	Name          string   `json:"name"`
	Exe           string   `json:"exe,omitempty"`
	Cmdline       string   `json:"cmdline,omitempty"`
	Username      string   `json:"username,omitempty"`
	Status        string   `json:"status,omitempty"`
	CPUPercent    float64  `json:"cpuPercent"`
	MemoryPercent float64  `json:"memoryPercent"`
	MemoryRSS     uint64   `json:"memoryRss"` // bytes
	IOReadBytes   uint64   `json:"ioReadBytes,omitempty"`
	IOWriteBytes  uint64   `json:"ioWriteBytes,omitempty"`
	NumThreads    int32    `json:"numThreads"`
	CreateTime    int64    `json:"createTime,omitempty"` // epoch ms
	OpenFiles     int      `json:"openFiles,omitempty"`
	Connections   int      `json:"connections,omitempty"`
	Children      []int32  `json:"children,omitempty"`
	Environ       []string `json:"-"`
}

// ConnectionInfo represents one network socket.
type ConnectionInfo struct {
	Proto      string `json:"proto"`
	LocalAddr  string `json:"localAddr"`
	LocalPort  uint32 `json:"localPort"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
	RemotePort uint32 `json:"remotePort,omitempty"`
	Status     string `json:"status"`
	PID        int32  `json:"pid,omitempty"`
	Process    string `json:"process,omitempty"`
	Privileged bool   `json:"privileged"` // local port below 1024
}

// ServiceInfo represents one managed service for table and snapshot
// output.
type ServiceInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	State       string `json:"state"`
	Backend     string `json:"backend"`
}

// HostInfo is the static header block of a snapshot.
type HostInfo struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Platform     string `json:"platform,omitempty"`
	OSVersion    string `json:"osVersion,omitempty"`
	Architecture string `json:"architecture"`
	Uptime       uint64 `json:"uptime"` // seconds
	BootTime     uint64 `json:"bootTime,omitempty"`
}

// CPUMetrics represents CPU utilization at snapshot time.
type CPUMetrics struct {
	UsedPct float64   `json:"usedPct"`
	Cores   int       `json:"cores"`
	Model   string    `json:"model,omitempty"`
	PerCore []float64 `json:"perCore,omitempty"`
}

// MemoryMetrics represents memory utilization at snapshot time.
type MemoryMetrics struct {
	Total       uint64  `json:"total"` // bytes
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	UsedPct     float64 `json:"usedPct"`
	SwapTotal   uint64  `json:"swapTotal,omitempty"`
	SwapUsedPct float64 `json:"swapUsedPct,omitempty"`
}

// DiskMetrics represents one mounted filesystem at snapshot time.
type DiskMetrics struct {
	Device     string  `json:"device"`
	MountPoint string  `json:"mountPoint"`
	FSType     string  `json:"fsType,omitempty"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	UsedPct    float64 `json:"usedPct"`
}

// NetworkMetrics represents cumulative network I/O at snapshot time.
type NetworkMetrics struct {
	BytesSent   uint64 `json:"bytesSent"`
	BytesRecv   uint64 `json:"bytesRecv"`
	PacketsSent uint64 `json:"packetsSent"`
	PacketsRecv uint64 `json:"packetsRecv"`
	Errors      uint64 `json:"errors"`
}

// InterfaceMetrics represents cumulative I/O for one network
// interface.
type InterfaceMetrics struct {
	Name        string `json:"name"`
	BytesSent   uint64 `json:"bytesSent"`
	BytesRecv   uint64 `json:"bytesRecv"`
	PacketsSent uint64 `json:"packetsSent"`
	PacketsRecv uint64 `json:"packetsRecv"`
	ErrorsIn    uint64 `json:"errorsIn"`
	ErrorsOut   uint64 `json:"errorsOut"`
}

// Snapshot is a point-in-time capture of the whole host, serialized by
// the export command.
type Snapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	Host        HostInfo           `json:"host"`
	CPU         CPUMetrics         `json:"cpu"`
	Memory      MemoryMetrics      `json:"memory"`
	Disks       []DiskMetrics      `json:"disks,omitempty"`
	Network     NetworkMetrics     `json:"network"`
	Interfaces  []InterfaceMetrics `json:"interfaces,omitempty"`
	Processes   []ProcessInfo      `json:"processes,omitempty"`
	Connections []ConnectionInfo   `json:"connections,omitempty"`
	Services    []ServiceInfo      `json:"services,omitempty"`
}
