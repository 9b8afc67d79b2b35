package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flups_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flups_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	r.WSClientsConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_ws_clients_connected",
			Help: "Current number of live websocket clients",
		},
	)

	r.WSMessagesSent = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flups_ws_messages_sent_total",
			Help: "Total websocket frames pushed to clients",
		},
	)
}
