package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// Run dispatches worker over [0, workload) with a new Dispatcher and waits
// for the run to reach a terminal state. RunAsync in opts is honored by Start
// but Run still waits. The returned error covers configuration only; the
// outcome and collected callback errors are in the Report.
func Run(ctx context.Context, workload int, worker Worker, opts ...Option) (Report, error) {
	opts = append(opts, WithWorkload(workload))
	d, err := New(worker, opts...)
	if err != nil {
		return Report{}, err
	}
	if err := d.Start(ctx); err != nil {
		return Report{}, err
	}
	return d.Wait(), nil
}

// ForEach applies fn to each item concurrently, one workload index per item.
// It returns errors.Join of every callback failure, plus ErrIncomplete when
// the run was abandoned, cancelled or stopped before all items were processed.
// Options like WithThreadLimit, WithPlanningMode, WithTTL and WithStopOnError are honored.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error, opts ...Option) error {
	if len(items) == 0 {
		return nil
	}
	r, err := Run(ctx, len(items), WorkerError(func(c context.Context, i int) error {
		return fn(c, items[i])
	}), opts...)
	if err != nil {
		return err
	}
	if r.Outcome != OutcomeCompleted {
		return errors.Join(fmt.Errorf("%w: %s", ErrIncomplete, r.Outcome), r.Err)
	}
	return r.Err
}
