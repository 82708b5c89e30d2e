package dispatch

import "context"

// runPlanning starts one long-lived worker per bucket of the plan, each
// draining its bucket in order, and waits until every index has completed.
//
// The TTL only gates starting buckets: once it has elapsed the loop returns
// without starting the remaining buckets and without waiting. Buckets that
// already started are not told to stop and keep running to their end.
func (d *Dispatcher) runPlanning(ctx context.Context) Outcome {
	workload := int64(d.cfg.Workload)
	last := d.plan.Len() - 1

	for b := 0; b <= last; b++ {
		if !d.admit(ctx) {
			return d.interrupted()
		}

		bucket := d.plan.Bucket(b)
		d.spawn(func() { d.drain(ctx, bucket) })

		if b < last {
			d.pause(ctx)
		}
	}

	for d.state.completed.Load() < workload {
		select {
		case <-d.state.progress:
		case <-ctx.Done():
			if d.state.completed.Load() >= workload {
				return OutcomeCompleted
			}
			return d.interrupted()
		}
	}

	return OutcomeCompleted
}

// drain is the body of a planning worker. The run context is checked before
// each index, so caller cancellation and StopOnError stop it between items.
func (d *Dispatcher) drain(ctx context.Context, bucket []int) {
	for _, index := range bucket {
		if !d.invoke(ctx, index) {
			return
		}
	}
}
