// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/VidSieve/pkg/types"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "vidsieve"

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	// EnableRuntimeMetrics adds the Go runtime and process collectors
	EnableRuntimeMetrics bool `yaml:"enable_runtime_metrics" json:"enable_runtime_metrics"`
}

// Metrics owns a private registry and the counters fed by the engine, the
// extractor, the watcher and the recorder
type Metrics struct {
	registry *prometheus.Registry

	scansTotal     prometheus.Counter
	scanDuration   prometheus.Histogram
	itemsEvaluated prometheus.Counter
	itemsFiltered  *prometheus.CounterVec
	missingFields  *prometheus.CounterVec
	storageErrors  prometheus.Counter
	triggersTotal  *prometheus.CounterVec
}

// NewMetrics registers every metric on a new registry
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	if config.EnableRuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)
	ns := config.Namespace

	return &Metrics{
		registry: registry,
		scansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "scans_total",
			Help:      "Total number of filter passes",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "scan_duration_seconds",
			Help:      "Duration of one filter pass",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		itemsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "items_evaluated_total",
			Help:      "Containers extracted and evaluated",
		}),
		itemsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "items_filtered_total",
			Help:      "Containers hidden, by reason",
		}, []string{"reason"}),
		missingFields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "extraction_missing_fields_total",
			Help:      "Extracted records lacking a field",
		}, []string{"field"}),
		storageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "history_write_errors_total",
			Help:      "History and stats writes that failed or were dropped",
		}),
		triggersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "triggers_total",
			Help:      "Scans run, by trigger source",
		}, []string{"source"}),
	}
}

// ScanCompleted records one filter pass
func (m *Metrics) ScanCompleted(elapsed time.Duration, evaluated int) {
	m.scansTotal.Inc()
	m.scanDuration.Observe(elapsed.Seconds())
	m.itemsEvaluated.Add(float64(evaluated))
}

// ItemFiltered counts a hidden container
func (m *Metrics) ItemFiltered(reason types.Reason) {
	m.itemsFiltered.WithLabelValues(reason.String()).Inc()
}

// TriggerFired counts a scan by its trigger
func (m *Metrics) TriggerFired(source string) {
	m.triggersTotal.WithLabelValues(source).Inc()
}

// MissingFields counts each field an extraction came back without
func (m *Metrics) MissingFields(fields []string) {
	for _, field := range fields {
		m.missingFields.WithLabelValues(field).Inc()
	}
}

// StorageError counts a failed or dropped storage write
func (m *Metrics) StorageError(err error) {
	m.storageErrors.Inc()
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
