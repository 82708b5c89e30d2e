//go:build linux

package hostcpu

import "golang.org/x/sys/unix"

// affinityCount returns the number of CPUs the calling process is allowed to
// run on, or 0 when the mask cannot be read.
func affinityCount() int {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return 0
	}
	return mask.Count()
}
