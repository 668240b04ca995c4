package loadtest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of a load run.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	CurrentRPS       prometheus.Gauge
	RateLimit        prometheus.Gauge
	ActiveUsers      prometheus.Gauge
	TargetHealth     prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesprobe",
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint, method and outcome",
			},
			[]string{"endpoint", "method", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notesprobe",
				Name:      "request_duration_seconds",
				Help:      "Request latency histogram",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"endpoint", "method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notesprobe",
				Name:      "requests_in_flight",
				Help:      "Current number of requests waiting for a response",
			},
		),
		CurrentRPS: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notesprobe",
				Name:      "current_rps",
				Help:      "Requests completed during the last second",
			},
		),
		RateLimit: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notesprobe",
				Name:      "rate_limit_rps",
				Help:      "Configured request rate cap (0 = unlimited)",
			},
		),
		ActiveUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notesprobe",
				Name:      "active_users",
				Help:      "Number of virtual users currently running",
			},
		),
		TargetHealth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notesprobe",
				Name:      "target_health",
				Help:      "Health of the target API (1=healthy, 0=unhealthy)",
			},
		),
	}
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(endpoint, method string, failed bool, durationSeconds float64) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}

	m.RequestsTotal.WithLabelValues(endpoint, method, outcome).Inc()
	m.RequestDuration.WithLabelValues(endpoint, method).Observe(durationSeconds)
}

// SetTargetHealth updates the health gauge.
func (m *Metrics) SetTargetHealth(healthy bool) {
	if healthy {
		m.TargetHealth.Set(1)
	} else {
		m.TargetHealth.Set(0)
	}
}
