// Package plan partitions a workload of indices into a fixed number of buckets.
//
// Partition assigns index i to bucket i mod K (round robin), so bucket sizes
// never differ by more than one and indices within a bucket are increasing.
// The result is deterministic: the same (workload, K) always yields the same plan.
package plan

import (
	"errors"
	"strconv"

	"github.com/ygrebnov/errorc"
)

// ErrInvalidArgument is returned by Partition for a non-positive worker count
// or a negative workload.
var ErrInvalidArgument = errors.New("plan: invalid argument")

// Plan is an immutable sequence of index buckets, one per worker.
type Plan struct {
	workload int
	buckets  [][]int
}

// Partition builds a round-robin plan of workload indices over exactly workers
// buckets. When workers exceeds workload the trailing buckets are empty; callers
// that must not pay for idle buckets should pass min(workers, workload).
func Partition(workload, workers int) (Plan, error) {
	if workers <= 0 {
		return Plan{}, errorc.With(ErrInvalidArgument, errorc.String("workers", strconv.Itoa(workers)))
	}
	if workload < 0 {
		return Plan{}, errorc.With(ErrInvalidArgument, errorc.String("workload", strconv.Itoa(workload)))
	}

	buckets := make([][]int, workers)
	perBucket := workload / workers
	for b := range buckets {
		n := perBucket
		if b < workload%workers {
			n++
		}
		buckets[b] = make([]int, 0, n)
	}
	for i := 0; i < workload; i++ {
		b := i % workers
		buckets[b] = append(buckets[b], i)
	}

	return Plan{workload: workload, buckets: buckets}, nil
}

// Len returns the number of buckets.
func (p Plan) Len() int { return len(p.buckets) }

// Workload returns the number of indices covered by the plan.
func (p Plan) Workload() int { return p.workload }

// Bucket returns a copy of bucket b.
func (p Plan) Bucket(b int) []int {
	out := make([]int, len(p.buckets[b]))
	copy(out, p.buckets[b])
	return out
}

// Buckets returns a copy of all buckets in order.
func (p Plan) Buckets() [][]int {
	out := make([][]int, len(p.buckets))
	for b := range p.buckets {
		out[b] = p.Bucket(b)
	}
	return out
}
