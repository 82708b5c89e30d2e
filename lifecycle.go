package dispatch

import "sync"

// waiter is satisfied by errgroup.Group and sync.WaitGroup-like trackers.
type waiter interface {
	Wait() error
}

// lifecycle encapsulates the stop sequence of a run.
// It is a wiring helper: it owns nothing and orders cancellation and waits.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycle struct {
	cancel       func()
	coordinator  <-chan struct{}
	stopWatchdog func()
	workers      waiter

	once sync.Once
}

func newLifecycle(cancel func(), coordinator <-chan struct{}, stopWatchdog func(), workers waiter) *lifecycle {
	return &lifecycle{
		cancel:       cancel,
		coordinator:  coordinator,
		stopWatchdog: stopWatchdog,
		workers:      workers,
	}
}

// Close executes the stop sequence exactly once:
// 1) cancel the run context
// 2) wait for the coordinating loop to reach its terminal state, so no worker is spawned afterwards
// 3) disarm the watchdog
// 4) wait for every worker goroutine to return
func (lc *lifecycle) Close() {
	lc.once.Do(func() {
		if lc.cancel != nil {
			lc.cancel()
		}
		if lc.coordinator != nil {
			<-lc.coordinator
		}
		if lc.stopWatchdog != nil {
			lc.stopWatchdog()
		}
		if lc.workers != nil {
			_ = lc.workers.Wait()
		}
	})
}
