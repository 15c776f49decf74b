package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kestrel-hq/secretd/pkg/config"
)

// Collector registers and records all secretd metrics.
//
// Metrics:
//   - <ns>_secret_reads_total{outcome}: source reads by outcome (ok, absent, failed)
//   - <ns>_secret_read_duration_seconds: source read latency
//   - <ns>_reloads_total{trigger,changed}: reconciliations by trigger
//   - <ns>_rotations_total: reloads that observed a new value
//   - <ns>_watch_events_total{entry}: filesystem events by classification
//   - <ns>_watcher_active: 1 while a live directory watch is installed
//   - <ns>_http_requests_total{path,method,status}: transport surface traffic
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	readsTotal       *prometheus.CounterVec
	readDuration     prometheus.Histogram
	reloadsTotal     *prometheus.CounterVec
	rotationsTotal   prometheus.Counter
	watchEventsTotal *prometheus.CounterVec
	watcherActive    prometheus.Gauge
	httpRequests     *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the specified configuration
// and registry. If registry is nil, a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "secretd"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		readsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "secret_reads_total",
				Help:      "Total number of secret source reads by outcome",
			},
			[]string{"outcome"},
		),

		readDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "secret_read_duration_seconds",
				Help:      "Duration of secret source reads in seconds",
				// Local file reads; sub-millisecond to slow-disk territory.
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reloads_total",
				Help:      "Total number of cache reconciliations by trigger",
			},
			[]string{"trigger", "changed"},
		),

		rotationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rotations_total",
				Help:      "Total number of observed secret rotations",
			},
		),

		watchEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "watch_events_total",
				Help:      "Filesystem events in the watched directory by classification",
			},
			[]string{"entry"},
		),

		watcherActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "watcher_active",
				Help:      "Whether a live filesystem watch is installed (1) or not (0)",
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by path, method, and status",
			},
			[]string{"path", "method", "status"},
		),
	}

	registry.MustRegister(
		c.readsTotal,
		c.readDuration,
		c.reloadsTotal,
		c.rotationsTotal,
		c.watchEventsTotal,
		c.watcherActive,
		c.httpRequests,
	)

	return c
}

// RecordRead records one secret source read.
func (c *Collector) RecordRead(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.readsTotal.WithLabelValues(outcome).Inc()
	c.readDuration.Observe(duration.Seconds())
}

// RecordReload records one reconciliation.
func (c *Collector) RecordReload(trigger string, changed bool) {
	if !c.config.Enabled {
		return
	}
	c.reloadsTotal.WithLabelValues(trigger, strconv.FormatBool(changed)).Inc()
}

// RecordRotation records one observed rotation.
func (c *Collector) RecordRotation() {
	if !c.config.Enabled {
		return
	}
	c.rotationsTotal.Inc()
}

// RecordWatchEvent records one classified filesystem event.
func (c *Collector) RecordWatchEvent(entry string) {
	if !c.config.Enabled {
		return
	}
	c.watchEventsTotal.WithLabelValues(entry).Inc()
}

// SetWatcherActive updates the watcher lifecycle gauge.
func (c *Collector) SetWatcherActive(active bool) {
	if !c.config.Enabled {
		return
	}
	if active {
		c.watcherActive.Set(1)
	} else {
		c.watcherActive.Set(0)
	}
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(path, method string, status int) {
	if !c.config.Enabled {
		return
	}
	c.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
