package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/dispatch/internal/hostcpu"
	"github.com/ygrebnov/dispatch/metrics"
	"github.com/ygrebnov/dispatch/plan"
)

// Dispatcher invokes a Worker once per index of a workload with bounded concurrency.
// A Dispatcher is single-use: it is bound to one workload and one run.
// Methods are safe for concurrent use.
type Dispatcher struct {
	// noCopy prevents accidental copying of the dispatcher.
	//go:nocopy
	nc noCopy

	cfg    config
	worker Worker

	state   *state
	wd      *watchdog
	console *console
	inst    instruments
	plan    plan.Plan

	// mu guards started and the run context set up by Start.
	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelCauseFunc
	begin   time.Time

	// workers tracks every worker goroutine spawned by the run.
	workers errgroup.Group

	// done is closed once the coordinating loop reaches a terminal state;
	// report is written before that.
	done   chan struct{}
	report Report

	errMu sync.Mutex
	errs  []error

	lc *lifecycle
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type instruments struct {
	workersSpawned     metrics.Counter
	workersActive      metrics.Gauge
	callbacksCompleted metrics.Counter
	callbackErrors     metrics.Counter
	callbackSeconds    metrics.Histogram
	runsCompleted      metrics.Counter
	runsAbandoned      metrics.Counter
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		workersSpawned:     p.Counter(metrics.WorkersSpawned),
		workersActive:      p.Gauge(metrics.WorkersActive),
		callbacksCompleted: p.Counter(metrics.CallbacksCompleted),
		callbackErrors:     p.Counter(metrics.CallbackErrors),
		callbackSeconds:    p.Histogram(metrics.CallbackSeconds),
		runsCompleted:      p.Counter(metrics.RunsCompleted),
		runsAbandoned:      p.Counter(metrics.RunsAbandoned),
	}
}

// New creates a Dispatcher for worker using functional options.
// Option errors are returned here; the workload itself is validated by Start.
func New(worker Worker, opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	d := &Dispatcher{
		cfg:     cfg,
		worker:  worker,
		state:   newState(),
		wd:      newWatchdog(cfg.TTL),
		console: newConsole(&cfg),
		inst:    newInstruments(cfg.Metrics),
		done:    make(chan struct{}),
	}
	d.lc = newLifecycle(d.requestStop, d.done, d.wd.stop, &d.workers)
	return d, nil
}

// Start validates the configuration and dispatches the workload.
//
// Semantics:
//   - Returns ErrInvalidConfig when the workload is not positive or the worker is nil; nothing is dispatched.
//   - Returns ErrAlreadyStarted on any call after the first successful one (or after Stop).
//   - Without RunAsync, blocks until the run is completed, abandoned, cancelled or stopped.
//   - With RunAsync, returns right away; use Wait or Done.
//
// Run outcomes are not errors: inspect the Report returned by Wait.
// Cancelling ctx cancels the run. A nil ctx is treated as context.Background().
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	if err := validateConfig(&d.cfg); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.worker == nil {
		d.mu.Unlock()
		return errorc.With(ErrInvalidConfig, errorc.String("", "worker callback is required"))
	}
	if d.cfg.ThreadLimit == 0 {
		d.cfg.ThreadLimit = hostcpu.Available()
	}
	if d.cfg.PlanningMode {
		// A bucket past the workload would be empty; its worker is not started.
		p, err := plan.Partition(d.cfg.Workload, min(d.cfg.ThreadLimit, d.cfg.Workload))
		if err != nil {
			d.mu.Unlock()
			return errorc.With(ErrInvalidConfig, errorc.String("plan", err.Error()))
		}
		d.plan = p
	}
	d.started = true
	d.ctx, d.cancel = context.WithCancelCause(ctx)
	d.begin = time.Now()
	d.wd.start()
	d.mu.Unlock()

	d.cfg.Logger.Debug("dispatch started",
		slog.Int("workload", d.cfg.Workload),
		slog.Int("thread_limit", d.cfg.ThreadLimit),
		slog.Bool("planning", d.cfg.PlanningMode),
		slog.Duration("ttl", d.cfg.TTL),
		slog.Duration("sleep", d.cfg.SleepTime),
	)

	if d.cfg.RunAsync {
		go d.coordinate()
		return nil
	}
	d.coordinate()
	return nil
}

// Wait blocks until the run reaches a terminal state and returns its report.
// It blocks forever if Start is never called.
func (d *Dispatcher) Wait() Report {
	<-d.done
	return d.report
}

// Done is closed once the run reaches a terminal state.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Stop cancels the run and waits for the coordinating loop and for every
// worker goroutine to return. Cancellation is cooperative: a callback that
// ignores its ctx is waited for. Stop is idempotent; on a finished run it only
// drains remaining workers. Stop before Start ends the dispatcher as cancelled.
func (d *Dispatcher) Stop() Report {
	d.lc.Close()

	r := d.Wait()
	return d.snapshot(r.Outcome)
}

// requestStop cancels a started run or retires a never-started one.
func (d *Dispatcher) requestStop() {
	d.mu.Lock()
	if !d.started {
		d.started = true
		d.mu.Unlock()
		d.finish(OutcomeCancelled)
		return
	}
	d.mu.Unlock()
	d.cancel(context.Canceled)
}

// coordinate runs the selected dispatch loop, then invokes Final on normal completion.
func (d *Dispatcher) coordinate() {
	var o Outcome
	if d.cfg.PlanningMode {
		o = d.runPlanning(d.ctx)
	} else {
		o = d.runDynamic(d.ctx)
	}
	d.wd.stop()

	if o == OutcomeCompleted && d.cfg.Final != nil {
		d.cfg.Final()
	}
	d.finish(o)

	// Release the run context once the last straggler returns.
	go func() {
		_ = d.workers.Wait()
		d.cancel(nil)
	}()
}

// interrupted classifies why a loop stopped before completion.
func (d *Dispatcher) interrupted() Outcome {
	if d.wd.elapsed() {
		return OutcomeAbandoned
	}
	var ce *CallbackError
	if errors.As(context.Cause(d.ctx), &ce) {
		return OutcomeStopped
	}
	return OutcomeCancelled
}

// pause sleeps SleepTime, waking early on cancellation or TTL expiry.
func (d *Dispatcher) pause(ctx context.Context) {
	if d.cfg.SleepTime <= 0 {
		runtime.Gosched()
		return
	}
	t := time.NewTimer(d.cfg.SleepTime)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-d.wd.done():
	}
}

// admit applies the optional spawn rate limit. It reports false when the run
// was cancelled or the TTL elapsed, either before or while waiting for a token;
// the caller must not spawn then.
//
// A reservation is used instead of Limiter.Wait so that the wait also ends on
// TTL expiry and a caller deadline shorter than the token delay is not an error.
func (d *Dispatcher) admit(ctx context.Context) bool {
	if d.cfg.SpawnLimiter != nil {
		r := d.cfg.SpawnLimiter.Reserve()
		if !r.OK() {
			return false
		}
		if delay := r.Delay(); delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				r.Cancel()
				return false
			case <-d.wd.done():
				r.Cancel()
				return false
			}
		}
	}
	return ctx.Err() == nil && !d.wd.elapsed()
}

// spawn starts one worker goroutine running body and accounts it as active.
func (d *Dispatcher) spawn(body func()) {
	active := d.state.active.Add(1)
	d.inst.workersSpawned.Inc()
	d.inst.workersActive.Add(1)

	workload := int64(d.cfg.Workload)
	progress := d.state.completed.Load()
	if !d.cfg.PlanningMode {
		progress = d.state.assigned(d.cfg.Workload)
	}
	d.console.spawn(active, int64(d.cfg.ThreadLimit), progress, workload)

	d.workers.Go(func() error {
		defer d.exit()
		body()
		return nil
	})
}

func (d *Dispatcher) exit() {
	d.state.active.Add(-1)
	d.inst.workersActive.Add(-1)
	d.state.notify()
}

// finish records the terminal report and closes done.
func (d *Dispatcher) finish(o Outcome) {
	d.report = d.snapshot(o)

	if o == OutcomeCompleted {
		d.inst.runsCompleted.Inc()
	} else {
		d.inst.runsAbandoned.Inc()
	}
	d.console.finish(o, d.report.Completed, int64(d.cfg.Workload), d.report.Elapsed)
	d.cfg.Logger.Info("dispatch finished",
		slog.String("outcome", o.String()),
		slog.Int64("invoked", d.report.Invoked),
		slog.Int64("completed", d.report.Completed),
		slog.Int("workload", d.cfg.Workload),
		slog.Duration("elapsed", d.report.Elapsed),
	)

	close(d.done)
}

func (d *Dispatcher) snapshot(o Outcome) Report {
	d.errMu.Lock()
	err := errors.Join(d.errs...)
	d.errMu.Unlock()

	var elapsed time.Duration
	if !d.begin.IsZero() {
		elapsed = time.Since(d.begin)
	}
	if d.report.Outcome != OutcomePending {
		elapsed = d.report.Elapsed
	}

	return Report{
		Outcome:     o,
		Workload:    d.cfg.Workload,
		ThreadLimit: d.cfg.ThreadLimit,
		Planning:    d.cfg.PlanningMode,
		Invoked:     d.state.invoked.Load(),
		Completed:   d.state.completed.Load(),
		Elapsed:     elapsed,
		Err:         err,
	}
}
