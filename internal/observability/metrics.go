package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_dashboard"

// Metrics holds the Prometheus collectors for lookups and upstream calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={current,forecast,diag}, outcome={success,upstream_error,transport_error,circuit_open}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint
	UpstreamUp       prometheus.Gauge
	Lookups          *prometheus.CounterVec // labels: outcome={success,error}
	ForecastDays     prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.UpstreamUp,
		m.Lookups,
		m.ForecastDays,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "OpenWeatherMap requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		UpstreamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_up",
			Help:      "1 when the last upstream probe succeeded, 0 otherwise.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Location lookups by outcome.",
		}, []string{"outcome"}),
		ForecastDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_days",
			Help:      "Number of daily summaries produced per lookup.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveLookup records the outcome of a lookup and how many days it produced.
func (m *Metrics) ObserveLookup(err error, days int) {
	if m == nil {
		return
	}
	if err != nil {
		m.Lookups.WithLabelValues("error").Inc()
		return
	}
	m.Lookups.WithLabelValues("success").Inc()
	m.ForecastDays.Observe(float64(days))
}

// SetUpstreamUp sets the probe gauge.
func (m *Metrics) SetUpstreamUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.UpstreamUp.Set(1)
		return
	}
	m.UpstreamUp.Set(0)
}
