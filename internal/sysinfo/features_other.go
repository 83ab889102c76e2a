//go:build !amd64 && !arm64

package sysinfo

func cpuFeatures() []string {
	return nil
}
