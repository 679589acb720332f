// Package metrics wraps Prometheus collectors for the log pipeline and the
// dynamic module loader.
//
// Every recording method is safe on a nil receiver so services can be built
// without metrics and still call into them unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const DEFAULT_NAMESPACE = "acebridge"

// Collector owns a private registry with both service collectors registered.
type Collector struct {
	registry *prometheus.Registry
	Log      *LogCollector
	Module   *ModuleCollector
}

// LogCollector records async log pipeline activity.
type LogCollector struct {
	enqueued   *prometheus.CounterVec
	delivered  *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	fallback   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	queueDepth prometheus.Gauge
	workers    prometheus.Gauge
}

// ModuleCollector records dynamic module loader activity.
type ModuleCollector struct {
	lookups     *prometheus.CounterVec
	loads       *prometheus.CounterVec
	loadLatency *prometheus.HistogramVec
	cached      prometheus.Gauge
}

// NewCollector creates both collectors under namespace (DEFAULT_NAMESPACE if
// empty) and registers them into a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DEFAULT_NAMESPACE
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Log:      NewLogCollector(namespace),
		Module:   NewModuleCollector(namespace),
	}
	c.Log.MustRegister(c.registry)
	c.Module.MustRegister(c.registry)
	return c
}

// Registry returns the private registry (for promhttp.HandlerFor or Gather).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// NewLogCollector builds unregistered log pipeline collectors.
func NewLogCollector(namespace string) *LogCollector {
	return &LogCollector{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "tasks_enqueued_total",
			Help:      "Log tasks queued for host delivery",
		}, []string{"domain"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "tasks_delivered_total",
			Help:      "Log tasks delivered to the host logger",
		}, []string{"level"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "tasks_dropped_total",
			Help:      "Log tasks discarded without delivery",
		}, []string{"reason"}),
		fallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "fallback_writes_total",
			Help:      "Messages written synchronously to the native fallback sink",
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "delivery_failures_total",
			Help:      "Host delivery calls that returned an error or panicked",
		}, []string{"level"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "queue_depth",
			Help:      "Tasks waiting in the delivery queue",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "workers_running",
			Help:      "Delivery worker goroutines currently running (0 or 1)",
		}),
	}
}

// MustRegister registers all log collectors into reg.
func (c *LogCollector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.enqueued, c.delivered, c.dropped, c.fallback, c.failures, c.queueDepth, c.workers)
}

func (c *LogCollector) TaskEnqueued(domain string) {
	if c == nil {
		return
	}
	c.enqueued.WithLabelValues(domain).Inc()
	c.queueDepth.Inc()
}

func (c *LogCollector) TaskDequeued() {
	if c == nil {
		return
	}
	c.queueDepth.Dec()
}

func (c *LogCollector) TaskDelivered(level string) {
	if c == nil {
		return
	}
	c.delivered.WithLabelValues(level).Inc()
}

// TasksDropped counts n discarded tasks. Tasks removed from the queue by a
// stop also lower the queue depth.
func (c *LogCollector) TasksDropped(reason string, n int, fromQueue bool) {
	if c == nil || n <= 0 {
		return
	}
	c.dropped.WithLabelValues(reason).Add(float64(n))
	if fromQueue {
		c.queueDepth.Sub(float64(n))
	}
}

func (c *LogCollector) FallbackWrite(reason string) {
	if c == nil {
		return
	}
	c.fallback.WithLabelValues(reason).Inc()
}

func (c *LogCollector) DeliveryFailed(level string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(level).Inc()
}

func (c *LogCollector) WorkerRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.workers.Set(1)
	} else {
		c.workers.Set(0)
	}
}

// WorkerGauge exposes the running workers gauge for inspection.
func (c *LogCollector) WorkerGauge() prometheus.Gauge {
	return c.workers
}

// FailureCounter exposes the delivery failure counter of level for inspection.
func (c *LogCollector) FailureCounter(level string) prometheus.Counter {
	return c.failures.WithLabelValues(level)
}

// DroppedCounter exposes the dropped tasks counter of reason for inspection.
func (c *LogCollector) DroppedCounter(reason string) prometheus.Counter {
	return c.dropped.WithLabelValues(reason)
}

// NewModuleCollector builds unregistered loader collectors.
func NewModuleCollector(namespace string) *ModuleCollector {
	return &ModuleCollector{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dynmod",
			Name:      "lookups_total",
			Help:      "GetDynamicModule calls by cache outcome",
		}, []string{"outcome"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dynmod",
			Name:      "loads_total",
			Help:      "Library load-and-create sequences by result",
		}, []string{"result"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dynmod",
			Name:      "load_duration_seconds",
			Help:      "Time spent opening a library and creating a module",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us to ~1.6s
		}, []string{"library", "result"}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dynmod",
			Name:      "cached_modules",
			Help:      "Modules held by the loader registry",
		}),
	}
}

// MustRegister registers all loader collectors into reg.
func (c *ModuleCollector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.lookups, c.loads, c.loadLatency, c.cached)
}

// LoadCounter exposes the loads counter of result for inspection.
func (c *ModuleCollector) LoadCounter(result string) prometheus.Counter {
	return c.loads.WithLabelValues(result)
}

// CachedGauge exposes the cached modules gauge for inspection.
func (c *ModuleCollector) CachedGauge() prometheus.Gauge {
	return c.cached
}

func (c *ModuleCollector) Lookup(outcome string) {
	if c == nil {
		return
	}
	c.lookups.WithLabelValues(outcome).Inc()
}

func (c *ModuleCollector) Load(library, result string, took time.Duration) {
	if c == nil {
		return
	}
	c.loads.WithLabelValues(result).Inc()
	c.loadLatency.WithLabelValues(library, result).Observe(took.Seconds())
}

func (c *ModuleCollector) Cached(n int) {
	if c == nil {
		return
	}
	c.cached.Set(float64(n))
}
