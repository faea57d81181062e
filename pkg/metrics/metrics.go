package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gedash"

// Load results
const (
	ResultSuccess         = "success"
	ResultConnectionError = "connection_error"
	ResultFormatError     = "format_error"
	ResultError           = "error"
)

// Metrics holds every collector the service exports
// ⭐ SSOT: metric names are declared here only
type Metrics struct {
	registry prometheus.Gatherer

	Loads          *prometheus.CounterVec
	LoadDuration   prometheus.Histogram
	Records        prometheus.Gauge
	LastLoad       prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	ReloadThrottle prometheus.Counter
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Bulk reads of the validation relation, by result.",
		}, []string{"result"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of bulk reads of the validation relation.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_records",
			Help:      "Validation records held in the cached relation.",
		}),
		LastLoad: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_load_timestamp_seconds",
			Help:      "Unix time of the last successful load.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status code.",
		}, []string{"route", "code"}),
		ReloadThrottle: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_throttled_total",
			Help:      "Reload requests rejected by the rate limiter.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
