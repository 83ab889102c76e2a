//go:build !linux

package sysinfo

// physicalMemory is only detected on Linux; elsewhere it reports 0.
func physicalMemory() uint64 {
	return 0
}
