package dispatch

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/ygrebnov/errorc"
	"golang.org/x/time/rate"

	"github.com/ygrebnov/dispatch/metrics"
)

// config holds Dispatcher configuration. It is fixed once Start is called.
type config struct {
	// Final is invoked once after every index has been processed.
	// Default: nil (no completion callback).
	Final func()

	// Workload is the number of indices to dispatch, [0, Workload).
	// It must be positive when Start is called.
	// Default: 0
	Workload int

	// ThreadLimit caps the number of concurrently running worker goroutines.
	// Zero means the host's available parallelism, resolved at Start.
	// Default: 0
	ThreadLimit int

	// SleepTime is the pause between spawn attempts (dynamic mode) and
	// between bucket starts (planning mode). Zero only yields the processor.
	// Default: 1ms.
	SleepTime time.Duration

	// TTL abandons the run once it elapses. Zero disables the watchdog.
	// Default: 0
	TTL time.Duration

	// PlanningMode selects static round-robin partitioning over ThreadLimit
	// long-lived workers instead of on-demand spawning.
	// Default: false
	PlanningMode bool

	// RunAsync makes Start return right after dispatch begins.
	// Default: false (Start blocks until the run reaches a terminal state).
	RunAsync bool

	// WriteConsole emits a timestamped line per worker spawn to Console.
	// Default: false
	WriteConsole bool

	// Console receives spawn lines when WriteConsole is set.
	// Default: os.Stdout
	Console io.Writer

	// StopOnError abandons the run on the first callback failure.
	// Default: false (failures are collected and the run continues).
	StopOnError bool

	// SpawnLimiter paces worker spawns on top of SleepTime.
	// Default: nil (no rate limit).
	SpawnLimiter *rate.Limiter

	// Logger receives lifecycle events.
	// Default: a logger discarding everything.
	Logger *slog.Logger

	// Metrics receives instrument updates.
	// Default: metrics.Noop.
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		SleepTime: time.Millisecond,
		Console:   os.Stdout,
		Logger:    slog.New(slog.DiscardHandler),
		Metrics:   metrics.Noop{},
	}
}

// validateConfig checks the invariants that must hold before dispatch starts.
func validateConfig(cfg *config) error {
	if cfg.Workload <= 0 {
		return errorc.With(
			ErrInvalidConfig,
			errorc.String("workload", strconv.Itoa(cfg.Workload)),
			errorc.String("", "workload must be positive"),
		)
	}
	if cfg.ThreadLimit < 0 {
		return errorc.With(
			ErrInvalidConfig,
			errorc.String("threadLimit", strconv.Itoa(cfg.ThreadLimit)),
		)
	}
	return nil
}

// Option configures a Dispatcher. Use New(worker, opts...) to construct one.
type Option func(*config) error

// WithWorkload sets the number of indices to dispatch. It is validated by Start.
func WithWorkload(n int) Option {
	return func(cfg *config) error { cfg.Workload = n; return nil }
}

// WithFinal sets the completion callback invoked once after a run completes normally.
func WithFinal(fn func()) Option {
	return func(cfg *config) error { cfg.Final = fn; return nil }
}

// WithThreadLimit caps concurrently running workers (must be > 0).
func WithThreadLimit(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithThreadLimit requires n > 0"))
		}
		cfg.ThreadLimit = n
		return nil
	}
}

// WithSleepTime sets the pause between spawn attempts (must be >= 0).
func WithSleepTime(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithSleepTime requires d >= 0"))
		}
		cfg.SleepTime = d
		return nil
	}
}

// WithTTL enables the watchdog: the run is abandoned once d has elapsed since Start (must be > 0).
func WithTTL(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithTTL requires d > 0"))
		}
		cfg.TTL = d
		return nil
	}
}

// WithPlanningMode selects static round-robin partitioning.
func WithPlanningMode() Option {
	return func(cfg *config) error { cfg.PlanningMode = true; return nil }
}

// WithRunAsync makes Start return immediately; use Wait or Done to observe the run.
func WithRunAsync() Option {
	return func(cfg *config) error { cfg.RunAsync = true; return nil }
}

// WithWriteConsole enables spawn lines on standard output.
func WithWriteConsole() Option {
	return func(cfg *config) error { cfg.WriteConsole = true; return nil }
}

// WithConsole enables spawn lines on w.
func WithConsole(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithConsole requires a non-nil writer"))
		}
		cfg.WriteConsole = true
		cfg.Console = w
		return nil
	}
}

// WithStopOnError abandons the run when the first callback fails.
func WithStopOnError() Option {
	return func(cfg *config) error { cfg.StopOnError = true; return nil }
}

// WithSpawnRate limits worker spawns to perSecond with the given burst.
func WithSpawnRate(perSecond float64, burst int) Option {
	return func(cfg *config) error {
		if perSecond <= 0 || burst <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithSpawnRate requires perSecond > 0 and burst > 0"))
		}
		cfg.SpawnLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithLogger sets the structured logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}
