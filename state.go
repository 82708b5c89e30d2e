package dispatch

import "sync/atomic"

// state is the counter set shared by the coordinating loop and the workers of one run.
type state struct {
	// active counts live worker goroutines, 0..ThreadLimit.
	active atomic.Int64
	// next is the next unclaimed index (dynamic mode). It may run past the
	// workload by the number of workers that found nothing left to claim.
	next atomic.Int64
	// completed counts callbacks that returned.
	completed atomic.Int64
	// invoked counts callbacks that were entered.
	invoked atomic.Int64

	// progress wakes the coordinating loop after a worker exits or a callback returns.
	progress chan struct{}
}

func newState() *state {
	return &state{progress: make(chan struct{}, 1)}
}

// notify never blocks: one pending wake-up is enough for the single waiter.
func (s *state) notify() {
	select {
	case s.progress <- struct{}{}:
	default:
	}
}

// assigned returns the number of claimed indices, capped at workload.
func (s *state) assigned(workload int) int64 {
	return min(s.next.Load(), int64(workload))
}
