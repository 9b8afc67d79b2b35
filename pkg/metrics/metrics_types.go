package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the engine and its surfaces
type Registry struct {
	// Action metrics
	ActionsTotal       *prometheus.CounterVec
	ActionEnergyCost   *prometheus.HistogramVec
	ActionTicks        *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
	VirtualTimeTicks   prometheus.Gauge
	ActionQueueDepth   prometheus.Gauge

	// Lattice metrics
	LatticeNodesTotal   prometheus.Gauge
	LatticePatchesTotal prometheus.Gauge
	MirrorNodesTotal    prometheus.Gauge
	MirrorPatchesTotal  prometheus.Gauge
	LatticeMemoryBytes  prometheus.Gauge

	// Audit metrics
	AuditEntriesAppended prometheus.Gauge
	AuditEntriesRetained prometheus.Gauge

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	WSClientsConnected   prometheus.Gauge
	WSMessagesSent       prometheus.Counter

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	BusFramesSent   prometheus.Counter
	BusSendErrors   prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initActionMetrics()
	r.initLatticeMetrics()
	r.initAuditMetrics()
	r.initHTTPMetrics()
	r.initEventMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
