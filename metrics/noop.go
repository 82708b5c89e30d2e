package metrics

// Noop discards everything. It is the dispatcher's default provider.
type Noop struct{}

func (Noop) Counter(string) Counter     { return noop{} }
func (Noop) Gauge(string) Gauge         { return noop{} }
func (Noop) Histogram(string) Histogram { return noop{} }

type noop struct{}

func (noop) Inc()            {}
func (noop) Add(int64)       {}
func (noop) Observe(float64) {}
