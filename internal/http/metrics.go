package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. They live on a
// private registry so multiple servers (and tests) never fight over
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	RateLimitedTotal   prometheus.Counter
	PlaylistOpsTotal   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitune_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"endpoint", "status"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitune_resolutions_total",
				Help: "Total number of link resolutions",
			},
			[]string{"status"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unitune_resolution_duration_seconds",
				Help:    "Time spent resolving links",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "unitune_rate_limited_total",
				Help: "Total number of rate limited requests",
			},
		),
		PlaylistOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitune_playlist_ops_total",
				Help: "Total number of playlist operations",
			},
			[]string{"op", "status"},
		),
	}

	metrics.registry.MustRegister(
		metrics.RequestsTotal,
		metrics.ResolutionsTotal,
		metrics.ResolutionDuration,
		metrics.RateLimitedTotal,
		metrics.PlaylistOpsTotal,
	)

	return metrics
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(endpoint, status string) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) RecordResolution(status string) {
	m.ResolutionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordResolutionDuration(endpoint string, duration time.Duration) {
	m.ResolutionDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

func (m *Metrics) RecordPlaylistOp(op, status string) {
	m.PlaylistOpsTotal.WithLabelValues(op, status).Inc()
}
