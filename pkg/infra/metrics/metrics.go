// Package metrics is a small in-process metrics registry that renders the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Metric is anything the registry can render.
type Metric interface {
	Name() string
	// Describe renders HELP, TYPE and sample lines.
	Describe() string
}

type atomicFloat struct{ bits uint64 }

func (f *atomicFloat) add(v float64) {
	for {
		old := atomic.LoadUint64(&f.bits)
		if atomic.CompareAndSwapUint64(&f.bits, old, math.Float64bits(math.Float64frombits(old)+v)) {
			return
		}
	}
}

func (f *atomicFloat) load() float64 { return math.Float64frombits(atomic.LoadUint64(&f.bits)) }

func header(sb *strings.Builder, name, help, typ string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
}

// Counter only goes up.
type Counter struct {
	name, help string
	val        atomicFloat
}

// NewCounter creates a counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Name() string { return c.name }

// Inc adds one.
func (c *Counter) Inc() { c.val.add(1) }

// Add adds v. Negative values are ignored.
func (c *Counter) Add(v float64) {
	if v > 0 {
		c.val.add(v)
	}
}

// Get returns the current value.
func (c *Counter) Get() float64 { return c.val.load() }

func (c *Counter) Describe() string {
	var sb strings.Builder
	header(&sb, c.name, c.help, "counter")
	fmt.Fprintf(&sb, "%s %g\n", c.name, c.Get())
	return sb.String()
}

// Gauge goes up and down.
type Gauge struct {
	name, help string
	val        atomicFloat
}

// NewGauge creates a gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Name() string { return g.name }
func (g *Gauge) Inc()         { g.val.add(1) }
func (g *Gauge) Dec()         { g.val.add(-1) }
func (g *Gauge) Get() float64 { return g.val.load() }

func (g *Gauge) Describe() string {
	var sb strings.Builder
	header(&sb, g.name, g.help, "gauge")
	fmt.Fprintf(&sb, "%s %g\n", g.name, g.Get())
	return sb.String()
}

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	name, help string
	buckets    []float64

	mu     sync.Mutex
	counts []uint64
	sum    float64
	count  uint64
}

// NewHistogram creates a histogram. Nil buckets use DefaultBuckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return &Histogram{name: name, help: help, buckets: b, counts: make([]uint64, len(b))}
}

func (h *Histogram) Name() string { return h.name }

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.buckets {
		if v <= le {
			h.counts[i]++
		}
	}
}

func (h *Histogram) Describe() string {
	var sb strings.Builder
	header(&sb, h.name, h.help, "histogram")
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, le := range h.buckets {
		fmt.Fprintf(&sb, "%s_bucket{le=\"%g\"} %d\n", h.name, le, h.counts[i])
	}
	fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(&sb, "%s_sum %g\n", h.name, h.sum)
	fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count)
	return sb.String()
}

// CounterVec is a family of counters split by one label.
type CounterVec struct {
	name, help, label string
	counters          sync.Map // label value -> *Counter
}

// NewCounterVec creates a counter family keyed by label.
func NewCounterVec(name, help, label string) *CounterVec {
	return &CounterVec{name: name, help: help, label: label}
}

func (v *CounterVec) Name() string { return v.name }

// With returns the counter for value, creating it on first use.
func (v *CounterVec) With(value string) *Counter {
	if c, ok := v.counters.Load(value); ok {
		return c.(*Counter)
	}
	c, _ := v.counters.LoadOrStore(value, NewCounter(v.name, v.help))
	return c.(*Counter)
}

func (v *CounterVec) Describe() string {
	var sb strings.Builder
	header(&sb, v.name, v.help, "counter")
	var values []string
	v.counters.Range(func(k, _ interface{}) bool {
		values = append(values, k.(string))
		return true
	})
	sort.Strings(values)
	for _, value := range values {
		fmt.Fprintf(&sb, "%s{%s=%q} %g\n", v.name, v.label, value, v.With(value).Get())
	}
	return sb.String()
}

// Registry holds metrics by name.
type Registry struct {
	metrics sync.Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// DefaultRegistry is the process-wide registry.
var DefaultRegistry = NewRegistry()

// Register adds m, replacing any metric of the same name.
func (r *Registry) Register(m Metric) { r.metrics.Store(m.Name(), m) }

// Export renders every metric, sorted by name.
func (r *Registry) Export() string {
	var names []string
	r.metrics.Range(func(k, _ interface{}) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		if m, ok := r.metrics.Load(name); ok {
			sb.WriteString(m.(Metric).Describe())
		}
	}
	return sb.String()
}

// Register adds m to DefaultRegistry.
func Register(m Metric) { DefaultRegistry.Register(m) }

// Export renders DefaultRegistry.
func Export() string { return DefaultRegistry.Export() }
