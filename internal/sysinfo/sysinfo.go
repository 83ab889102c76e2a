// Package sysinfo reports host properties surfaced by getconfig: CPU count,
// instruction set features and physical memory.
package sysinfo

import (
	"runtime"
	"sync"
)

// Info describes the host.
type Info struct {
	OS             string   `json:"os"`
	Arch           string   `json:"arch"`
	CPUs           int      `json:"cpus"`
	PhysicalMemory uint64   `json:"physicalMemory"`
	Features       []string `json:"cpuFeatures"`
}

var (
	once   sync.Once
	cached Info
)

// Detect returns the host description. Detection runs once per process.
func Detect() Info {
	once.Do(func() {
		cached = Info{
			OS:             runtime.GOOS,
			Arch:           runtime.GOARCH,
			CPUs:           runtime.NumCPU(),
			PhysicalMemory: physicalMemory(),
			Features:       cpuFeatures(),
		}
	})

	info := cached
	info.Features = append([]string(nil), cached.Features...)
	return info
}

type feature struct {
	name string
	has  bool
}

func present(fs []feature) []string {
	var out []string
	for _, f := range fs {
		if f.has {
			out = append(out, f.name)
		}
	}
	return out
}
