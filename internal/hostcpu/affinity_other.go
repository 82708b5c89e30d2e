//go:build !linux

package hostcpu

func affinityCount() int { return 0 }
