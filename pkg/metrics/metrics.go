package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordAction records an action attempt. Cost and tick histograms are
// only fed by completed actions.
func (r *Registry) RecordAction(actionType, status string, cost float64, ticks uint64) {
	r.ActionsTotal.WithLabelValues(actionType, status).Inc()
	if status == "completed" {
		r.ActionEnergyCost.WithLabelValues(actionType).Observe(cost)
		r.ActionTicks.WithLabelValues(actionType).Observe(float64(ticks))
	}
}

// RecordValidationFailure records a rejected action
func (r *Registry) RecordValidationFailure(actionType string) {
	r.ValidationFailures.WithLabelValues(actionType).Inc()
}

// SetVirtualTime publishes the current virtual clock reading
func (r *Registry) SetVirtualTime(ticks uint64) {
	r.VirtualTimeTicks.Set(float64(ticks))
}

// SetQueueDepth publishes the current action queue depth
func (r *Registry) SetQueueDepth(depth int) {
	r.ActionQueueDepth.Set(float64(depth))
}

// UpdateLattice refreshes the lattice population gauges
func (r *Registry) UpdateLattice(nodes, patches, mirrorNodes, mirrorPatches int, memoryBytes uint64) {
	r.LatticeNodesTotal.Set(float64(nodes))
	r.LatticePatchesTotal.Set(float64(patches))
	r.MirrorNodesTotal.Set(float64(mirrorNodes))
	r.MirrorPatchesTotal.Set(float64(mirrorPatches))
	r.LatticeMemoryBytes.Set(float64(memoryBytes))
}

// UpdateAudit refreshes the audit trail gauges
func (r *Registry) UpdateAudit(appended uint64, retained int) {
	r.AuditEntriesAppended.Set(float64(appended))
	r.AuditEntriesRetained.Set(float64(retained))
}

// RecordEventPublished records one event delivered to the internal bus
func (r *Registry) RecordEventPublished(topic string) {
	r.EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventDropped records one event a slow subscriber missed
func (r *Registry) RecordEventDropped(topic string) {
	r.EventsDropped.WithLabelValues(topic).Inc()
}
