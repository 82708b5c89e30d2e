// Package hostcpu reports how many CPUs the current process may run on.
package hostcpu

import "runtime"

// Available returns the host's available parallelism: the number of CPUs in
// the process affinity mask where the platform exposes one, runtime.NumCPU
// otherwise. The result is always at least 1.
//
// On Linux runtime.NumCPU reads the affinity mask only once, at process start.
// Available queries it on every call, so a mask narrowed later (taskset, a
// cgroup cpuset update) is reflected in the default ThreadLimit of new runs.
func Available() int {
	n := affinityCount()
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(n, 1)
}
