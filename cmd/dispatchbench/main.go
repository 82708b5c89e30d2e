// Command dispatchbench runs a synthetic workload through the dynamic and
// planning strategies and prints a side-by-side comparison.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/ygrebnov/dispatch"
	"github.com/ygrebnov/dispatch/internal/hostcpu"
	"github.com/ygrebnov/dispatch/metrics"
)

var (
	bold  = color.New(color.Bold)
	red   = color.New(color.FgRed)
	green = color.New(color.FgGreen)
)

type result struct {
	mode    string
	report  dispatch.Report
	meanCbs time.Duration
}

func main() {
	workloadFlag := flag.Int("workload", 10_000, "Number of indices to dispatch")
	threadsFlag := flag.Int("threads", 0, "Concurrent worker limit (0 = available CPUs)")
	sleepFlag := flag.Duration("sleep", time.Millisecond, "Pause between spawn attempts")
	ttlFlag := flag.Duration("ttl", 0, "Abandon a run after this long (0 = no TTL)")
	modeFlag := flag.String("mode", "both", "Strategy to run: dynamic, planning or both")
	workFlag := flag.Duration("work", 100*time.Microsecond, "Simulated time spent per index")
	consoleFlag := flag.Bool("console", false, "Print a line per worker spawn")
	verboseFlag := flag.Bool("v", false, "Log dispatcher lifecycle events to stderr")
	flag.Parse()

	modes, err := selectModes(*modeFlag)
	if err != nil {
		_, _ = red.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	threads := *threadsFlag
	if threads <= 0 {
		threads = hostcpu.Available()
	}

	logger := slog.New(slog.DiscardHandler)
	if *verboseFlag {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printConfiguration(*workloadFlag, threads, *sleepFlag, *ttlFlag, *workFlag)

	results := make([]result, 0, len(modes))
	for _, mode := range modes {
		opts := []dispatch.Option{
			dispatch.WithThreadLimit(threads),
			dispatch.WithSleepTime(*sleepFlag),
			dispatch.WithLogger(logger),
		}
		if *ttlFlag > 0 {
			opts = append(opts, dispatch.WithTTL(*ttlFlag))
		}
		if *consoleFlag {
			opts = append(opts, dispatch.WithWriteConsole())
		}
		if mode == "planning" {
			opts = append(opts, dispatch.WithPlanningMode())
		}

		r, err := runMode(ctx, mode, *workloadFlag, *workFlag, *consoleFlag, opts)
		if err != nil {
			_, _ = red.Fprintf(os.Stderr, "%s: %v\n", mode, err)
			os.Exit(1)
		}
		results = append(results, r)
	}

	printResults(results)
}

func selectModes(mode string) ([]string, error) {
	switch mode {
	case "dynamic", "planning":
		return []string{mode}, nil
	case "both":
		return []string{"dynamic", "planning"}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want dynamic, planning or both)", mode)
	}
}

func runMode(
	ctx context.Context, mode string, workload int, work time.Duration, console bool, opts []dispatch.Option,
) (result, error) {
	var bar *progressbar.ProgressBar
	if !console {
		bar = makeProgressBar(mode, workload)
	}

	m := metrics.NewMemory()
	opts = append(opts,
		dispatch.WithMetrics(m),
		dispatch.WithFinal(func() {
			if bar != nil {
				_ = bar.Finish()
			}
		}),
	)

	worker := dispatch.WorkerContext(func(ctx context.Context, _ int) {
		spin(ctx, work)
		if bar != nil {
			_ = bar.Add(1)
		}
	})

	d, err := dispatch.New(worker, append(opts, dispatch.WithWorkload(workload))...)
	if err != nil {
		return result{}, err
	}
	if err := d.Start(ctx); err != nil {
		return result{}, err
	}
	r := d.Stop()
	if bar != nil {
		_ = bar.Exit()
	}

	cbs := m.Snapshot().Histograms[metrics.CallbackSeconds]
	return result{
		mode:    mode,
		report:  r,
		meanCbs: time.Duration(cbs.Mean() * float64(time.Second)),
	}, nil
}

// spin simulates CPU-bound work, giving up early once ctx is done.
func spin(ctx context.Context, d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
	}
}

func makeProgressBar(mode string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(mode),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printConfiguration(workload, threads int, sleep, ttl, work time.Duration) {
	_, _ = bold.Println("Configuration:")
	fmt.Printf("  Workload:      %d indices\n", workload)
	fmt.Printf("  Thread limit:  %d\n", threads)
	fmt.Printf("  Sleep time:    %s\n", sleep)
	if ttl > 0 {
		fmt.Printf("  TTL:           %s\n", ttl)
	} else {
		fmt.Printf("  TTL:           none\n")
	}
	fmt.Printf("  Work/index:    %s\n", work)
	fmt.Println()
}

func printResults(results []result) {
	fmt.Println()
	_, _ = bold.Println("Results:")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Mode", "Outcome", "Invoked", "Completed", "Elapsed", "Indices/sec", "Mean callback", "Errors")

	for _, r := range results {
		outcome := green.Sprint(r.report.Outcome)
		if r.report.Outcome != dispatch.OutcomeCompleted {
			outcome = red.Sprint(r.report.Outcome)
		}

		rate := 0.0
		if secs := r.report.Elapsed.Seconds(); secs > 0 {
			rate = float64(r.report.Completed) / secs
		}

		errs := "-"
		if r.report.Err != nil {
			errs = r.report.Err.Error()
		}

		_ = table.Append(
			r.mode,
			outcome,
			fmt.Sprintf("%d", r.report.Invoked),
			fmt.Sprintf("%d/%d", r.report.Completed, r.report.Workload),
			r.report.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.0f", rate),
			r.meanCbs.Round(time.Microsecond).String(),
			errs,
		)
	}

	_ = table.Render()
}
