package dispatch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

const consoleTimeLayout = "15:04:05.000"

// console writes human-oriented status lines. The format is informational only.
type console struct {
	mu    sync.Mutex
	w     io.Writer
	stamp *color.Color
	warn  *color.Color
	ok    *color.Color
}

// newConsole returns nil when console output is disabled; a nil *console discards.
func newConsole(cfg *config) *console {
	if !cfg.WriteConsole || cfg.Console == nil {
		return nil
	}
	return &console{
		w:     cfg.Console,
		stamp: color.New(color.FgHiBlack),
		warn:  color.New(color.FgRed),
		ok:    color.New(color.FgGreen),
	}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "%s %s\n", c.stamp.Sprint(time.Now().Format(consoleTimeLayout)), fmt.Sprintf(format, args...))
}

// spawn reports a new worker goroutine.
func (c *console) spawn(active, limit int64, done, workload int64) {
	if c == nil {
		return
	}
	pct := 0.0
	if workload > 0 {
		pct = float64(done) / float64(workload) * 100
	}
	c.printf("spawn: active=%d/%d progress=%d/%d (%.1f%%)", active, limit, done, workload, pct)
}

// finish reports the terminal state of the run.
func (c *console) finish(o Outcome, completed, workload int64, elapsed time.Duration) {
	if c == nil {
		return
	}
	paint := c.ok
	if o != OutcomeCompleted {
		paint = c.warn
	}
	c.printf("%s: progress=%d/%d elapsed=%s", paint.Sprint(o.String()), completed, workload, elapsed.Round(time.Millisecond))
}
