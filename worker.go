package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Worker is the canonical callback shape: it processes one workload index.
// ctx is done once the worker has been told to stop (TTL expiry in dynamic
// mode, Stop, caller cancellation); callbacks that block should watch it.
// Use WorkerFunc / WorkerContext / WorkerError to adapt common signatures.
type Worker func(ctx context.Context, index int) error

// WorkerFunc adapts func(index) to Worker.
func WorkerFunc(fn func(index int)) Worker {
	return func(_ context.Context, index int) error { fn(index); return nil }
}

// WorkerContext adapts func(ctx, index) to Worker.
func WorkerContext(fn func(ctx context.Context, index int)) Worker {
	return func(ctx context.Context, index int) error { fn(ctx, index); return nil }
}

// WorkerError adapts func(ctx, index) error to Worker.
func WorkerError(fn func(ctx context.Context, index int) error) Worker { return Worker(fn) }

// call runs the callback, turning a panic into an error.
func (w Worker) call(ctx context.Context, index int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanicked, p)
		}
	}()
	return w(ctx, index)
}

// invoke processes one index on behalf of a worker goroutine.
// It reports whether the callback ran. A worker that is already told to stop
// skips the callback; a callback that returns the cancellation cause of its
// own ctx is treated as a clean stop rather than a failure.
func (d *Dispatcher) invoke(ctx context.Context, index int) bool {
	if ctx.Err() != nil {
		return false
	}

	d.state.invoked.Add(1)
	start := time.Now()
	err := d.worker.call(ctx, index)
	d.inst.callbackSeconds.Observe(time.Since(start).Seconds())

	d.state.completed.Add(1)
	d.inst.callbacksCompleted.Inc()
	d.state.notify()

	if err != nil && !isCancellation(ctx, err) {
		d.fail(index, err)
	}
	return true
}

func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fail records a callback failure and, with StopOnError, stops the run.
func (d *Dispatcher) fail(index int, err error) {
	ce := newCallbackError(index, err)

	d.errMu.Lock()
	d.errs = append(d.errs, ce)
	d.errMu.Unlock()

	d.inst.callbackErrors.Inc()
	d.cfg.Logger.Warn("worker callback failed",
		slog.Int("index", index),
		slog.String("error", err.Error()),
	)

	if d.cfg.StopOnError {
		d.cancel(ce)
	}
}
