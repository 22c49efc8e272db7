// Package hostinfo describes the machine a benchmark ran on.
//
// Kernel and memory details come from platform-specific system calls; on
// unsupported platforms only the Go runtime view is reported.
package hostinfo

import (
	"os"
	"runtime"
)

// Info is attached to every benchmark record.
type Info struct {
	Hostname    string `json:"hostname,omitempty"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	Machine     string `json:"machine,omitempty"`
	Kernel      string `json:"kernel,omitempty"`
	CPUs        int    `json:"cpus"`
	MemoryBytes uint64 `json:"memory_bytes,omitempty"`
}

// Collect gathers the host description. It never fails: fields that cannot
// be determined are left empty.
func Collect() *Info {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}
	if machine, kernel, ok := uname(); ok {
		info.Machine = machine
		info.Kernel = kernel
	}
	if mem, ok := totalSystemMemory(); ok {
		info.MemoryBytes = mem
	}
	return info
}
