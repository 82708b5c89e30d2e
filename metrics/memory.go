package metrics

import (
	"sync"
	"sync/atomic"
)

// Memory keeps instruments in process. Instruments are created on first use
// and shared by name afterwards. Useful for tests and for the bench CLI.
type Memory struct {
	mu         sync.Mutex
	counters   map[string]*counter
	gauges     map[string]*gauge
	histograms map[string]*histogram
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		counters:   make(map[string]*counter),
		gauges:     make(map[string]*gauge),
		histograms: make(map[string]*histogram),
	}
}

// Counter returns the counter registered under name, creating it on first use.
func (m *Memory) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = &counter{}
		m.counters[name] = c
	}
	return c
}

// Gauge returns the gauge registered under name, creating it on first use.
func (m *Memory) Gauge(name string) Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[name]
	if !ok {
		g = &gauge{}
		m.gauges[name] = g
	}
	return g
}

// Histogram returns the histogram registered under name, creating it on first use.
func (m *Memory) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		h = &histogram{}
		m.histograms[name] = h
	}
	return h
}

// Distribution summarizes a histogram.
type Distribution struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 for an empty distribution.
func (d Distribution) Mean() float64 {
	if d.Count == 0 {
		return 0
	}
	return d.Sum / float64(d.Count)
}

// Snapshot is a point-in-time copy of every instrument.
type Snapshot struct {
	Counters   map[string]int64
	Gauges     map[string]int64
	Histograms map[string]Distribution
}

// Snapshot copies the current instrument values.
func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Counters:   make(map[string]int64, len(m.counters)),
		Gauges:     make(map[string]int64, len(m.gauges)),
		Histograms: make(map[string]Distribution, len(m.histograms)),
	}
	for name, c := range m.counters {
		s.Counters[name] = c.n.Load()
	}
	for name, g := range m.gauges {
		s.Gauges[name] = g.n.Load()
	}
	for name, h := range m.histograms {
		s.Histograms[name] = h.distribution()
	}
	return s
}

type counter struct{ n atomic.Int64 }

func (c *counter) Inc() { c.n.Add(1) }

type gauge struct{ n atomic.Int64 }

func (g *gauge) Add(delta int64) { g.n.Add(delta) }

type histogram struct {
	mu sync.Mutex
	d  Distribution
}

func (h *histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.d.Count == 0 || v < h.d.Min {
		h.d.Min = v
	}
	if h.d.Count == 0 || v > h.d.Max {
		h.d.Max = v
	}
	h.d.Count++
	h.d.Sum += v
}

func (h *histogram) distribution() Distribution {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.d
}
