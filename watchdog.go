package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// workerHandle lets the watchdog cancel one worker goroutine.
type workerHandle struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// watchdog enforces a run's TTL. When the TTL elapses it cancels every
// registered worker handle and closes expired. It never touches the
// counters or the completion callback.
//
// A nil *watchdog is valid and means no TTL: it never expires and hands out
// the parent context unchanged.
type watchdog struct {
	ttl     time.Duration
	started time.Time
	timer   *time.Timer
	expired chan struct{}
	fired   atomic.Bool

	mu      sync.Mutex
	seq     uint64
	handles map[uint64]context.CancelFunc
}

func newWatchdog(ttl time.Duration) *watchdog {
	if ttl <= 0 {
		return nil
	}
	return &watchdog{
		ttl:     ttl,
		expired: make(chan struct{}),
		handles: make(map[uint64]context.CancelFunc),
	}
}

// start records the monotonic start time and arms the timer.
func (w *watchdog) start() {
	if w == nil {
		return
	}
	w.started = time.Now()
	w.timer = time.AfterFunc(w.ttl, w.fire)
}

// stop disarms the timer. Handles already cancelled stay cancelled.
func (w *watchdog) stop() {
	if w == nil || w.timer == nil {
		return
	}
	w.timer.Stop()
}

// elapsed reports whether the TTL has passed since start.
func (w *watchdog) elapsed() bool {
	if w == nil {
		return false
	}
	return w.fired.Load() || time.Since(w.started) >= w.ttl
}

// done is closed once the watchdog fires; nil (never ready) without a TTL.
func (w *watchdog) done() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.expired
}

func (w *watchdog) fire() {
	if !w.fired.CompareAndSwap(false, true) {
		return
	}
	close(w.expired)

	w.mu.Lock()
	handles := w.handles
	w.handles = make(map[uint64]context.CancelFunc)
	w.mu.Unlock()

	for _, cancel := range handles {
		cancel()
	}
}

// register derives a cancellable context for one worker and tracks it until release.
func (w *watchdog) register(parent context.Context) workerHandle {
	if w == nil {
		return workerHandle{ctx: parent, cancel: func() {}}
	}
	ctx, cancel := context.WithCancel(parent)

	w.mu.Lock()
	w.seq++
	h := workerHandle{id: w.seq, ctx: ctx, cancel: cancel}
	w.handles[h.id] = cancel
	w.mu.Unlock()

	// fire may have swapped the map out before we inserted.
	if w.fired.Load() {
		cancel()
	}
	return h
}

// release forgets a handle and frees its context.
func (w *watchdog) release(h workerHandle) {
	if w != nil {
		w.mu.Lock()
		delete(w.handles, h.id)
		w.mu.Unlock()
	}
	h.cancel()
}

// tracked returns the number of registered handles.
func (w *watchdog) tracked() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handles)
}
