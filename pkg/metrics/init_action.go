package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initActionMetrics() {
	r.ActionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flups_actions_total",
			Help: "Total number of action attempts",
		},
		[]string{"type", "status"},
	)

	r.ActionEnergyCost = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flups_action_energy_cost",
			Help:    "Energy cost of completed actions",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"type"},
	)

	r.ActionTicks = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flups_action_ticks",
			Help:    "Virtual ticks consumed by completed actions",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"type"},
	)

	r.ValidationFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flups_validation_failures_total",
			Help: "Total number of rejected actions",
		},
		[]string{"type"},
	)

	r.VirtualTimeTicks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_virtual_time_ticks",
			Help: "Current virtual clock reading in ticks",
		},
	)

	r.ActionQueueDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_action_queue_depth",
			Help: "Number of actions waiting in the queue",
		},
	)
}
