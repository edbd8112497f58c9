// Package metrics records conversion metrics with Prometheus.
//
// A converter run is a short-lived process, so nothing is served over
// HTTP. Instead a Collector owns its own registry and can dump it in the
// text exposition format for the node exporter's textfile collector:
//
//	collector := metrics.NewCollector()
//	timer := metrics.NewTimer("convert")
//	rows, err := convert()
//	collector.ObserveConversion("fits", "gzip", rows, cols, bytes, timer.Stop())
//	_ = collector.WriteTextfile("/var/lib/node_exporter/csvfits.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

// Namespace prefixes every metric name
const Namespace = "csvfits"

// Collector holds the conversion metrics and the registry they live in
type Collector struct {
	registry *prometheus.Registry

	conversions  *prometheus.CounterVec
	rows         *prometheus.CounterVec
	bytesWritten *prometheus.CounterVec
	columns      prometheus.Gauge
	duration     *prometheus.HistogramVec
	failures     *prometheus.CounterVec
}

// NewCollector creates a Collector with a fresh registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "conversions_total",
				Help:      "Total number of completed conversions",
			},
			[]string{"format", "compression"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rows_converted_total",
				Help:      "Total number of rows written",
			},
			[]string{"format"},
		),
		bytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "bytes_written_total",
				Help:      "Total number of encoded bytes written before compression",
			},
			[]string{"format"},
		),
		columns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "columns",
				Help:      "Number of columns in the last converted table",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Wall time of a conversion",
				Buckets: []float64{
					0.001, // tiny light curves
					0.01,
					0.1,
					1,
					10,
					60, // multi-gigabyte catalogs
				},
			},
			[]string{"format"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "failures_total",
				Help:      "Total number of failed conversions by error type",
			},
			[]string{"type"},
		),
	}

	c.registry.MustRegister(c.conversions, c.rows, c.bytesWritten, c.columns, c.duration, c.failures)
	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveConversion records a successful conversion
func (c *Collector) ObserveConversion(format, compression string, rows, columns int, bytesWritten int64, d time.Duration) {
	c.conversions.WithLabelValues(format, compression).Inc()
	c.rows.WithLabelValues(format).Add(float64(rows))
	c.bytesWritten.WithLabelValues(format).Add(float64(bytesWritten))
	c.columns.Set(float64(columns))
	c.duration.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveFailure records a failed conversion, labelled by error type
func (c *Collector) ObserveFailure(err error) {
	c.failures.WithLabelValues(string(errors.TypeOf(err))).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write metrics textfile").WithDetail("path", path)
	}
	return nil
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
