package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.EventsPublished = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flups_events_published_total",
			Help: "Total events published on the internal bus",
		},
		[]string{"topic"},
	)

	r.EventsDropped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flups_events_dropped_total",
			Help: "Events dropped because a subscriber fell behind",
		},
		[]string{"topic"},
	)

	r.BusFramesSent = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flups_bus_frames_sent_total",
			Help: "Frames published on the external NNG bus",
		},
	)

	r.BusSendErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flups_bus_send_errors_total",
			Help: "Publish failures on the external NNG bus",
		},
	)
}
