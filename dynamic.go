package dispatch

import "context"

// runDynamic spawns one worker per index on demand, keeping at most
// ThreadLimit alive, until every index is claimed and every worker has exited.
//
// On TTL expiry the loop returns immediately without waiting for in-flight
// workers; the watchdog cancels them independently.
func (d *Dispatcher) runDynamic(ctx context.Context) Outcome {
	workload := int64(d.cfg.Workload)
	limit := int64(d.cfg.ThreadLimit)

	for d.state.next.Load() < workload || d.state.active.Load() > 0 {
		if d.wd.elapsed() || ctx.Err() != nil {
			return d.interrupted()
		}

		if d.state.next.Load() >= workload {
			// Everything is claimed; only in-flight workers remain.
			select {
			case <-d.state.progress:
			case <-ctx.Done():
			case <-d.wd.done():
			}
			continue
		}

		if d.state.active.Load() < limit {
			if !d.admit(ctx) {
				continue
			}
			d.spawn(func() { d.claimAndInvoke(ctx, workload) })
		}
		d.pause(ctx)
	}

	return OutcomeCompleted
}

// claimAndInvoke is the body of a dynamic worker: claim one index, process it.
// Claims past the workload happen when the loop spawned faster than earlier
// workers claimed; such a worker exits without invoking the callback.
func (d *Dispatcher) claimAndInvoke(ctx context.Context, workload int64) {
	h := d.wd.register(ctx)
	defer d.wd.release(h)

	index := d.state.next.Add(1) - 1
	if index >= workload {
		return
	}
	d.invoke(h.ctx, int(index))
}
