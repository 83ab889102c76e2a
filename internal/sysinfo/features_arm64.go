//go:build arm64

package sysinfo

import "golang.org/x/sys/cpu"

func cpuFeatures() []string {
	return present([]feature{
		{"asimd", cpu.ARM64.HasASIMD},
		{"crc32", cpu.ARM64.HasCRC32},
		{"atomics", cpu.ARM64.HasATOMICS},
		{"sve", cpu.ARM64.HasSVE},
		{"sve2", cpu.ARM64.HasSVE2},
	})
}
