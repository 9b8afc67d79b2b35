package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAuditMetrics() {
	r.AuditEntriesAppended = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_audit_entries_appended_total",
			Help: "Entries appended to the audit trail since start",
		},
	)

	r.AuditEntriesRetained = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_audit_entries_retained",
			Help: "Entries currently held inside the bounded audit trail",
		},
	)
}
