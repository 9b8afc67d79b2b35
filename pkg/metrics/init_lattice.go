package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLatticeMetrics() {
	r.LatticeNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_lattice_nodes_total",
			Help: "Total number of nodes in the lattice",
		},
	)

	r.LatticePatchesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_lattice_patches_total",
			Help: "Total number of triangular patches in the lattice",
		},
	)

	r.MirrorNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_lattice_mirror_nodes_total",
			Help: "Number of nodes that are mirror images",
		},
	)

	r.MirrorPatchesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_lattice_mirror_patches_total",
			Help: "Number of patches that are mirror images",
		},
	)

	r.LatticeMemoryBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flups_lattice_memory_bytes",
			Help: "Estimated memory held by lattice entities in bytes",
		},
	)
}
