package lattice

import (
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
)

// Apply performs a set of node mutations atomically: either every
// referenced node exists and all mutations land, or nothing changes.
// Zero-valued State and Timestamp fields leave the node's current values
// alone; energy is floored at zero after each delta.
func (l *Lattice) Apply(mutations []Mutation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Verify first so a bad reference cannot leave partial state
	for _, m := range mutations {
		if _, exists := l.nodes[m.NodeID]; !exists {
			return NodeNotFoundError("apply", m.NodeID)
		}
	}

	for _, m := range mutations {
		node := l.nodes[m.NodeID]
		if m.State != "" {
			node.State = m.State
		}
		node.Energy += m.EnergyDelta
		if node.Energy < 0 {
			node.Energy = 0
		}
		if m.Timestamp != 0 {
			node.LastActionAt = m.Timestamp
		}
		if m.ObserveLoad {
			node.observeWorkload(m.Workload)
		}
	}

	return nil
}

// RefreshPatch recomputes a patch's center and total energy from the
// live nodes. This is the only way a patch's frozen snapshot moves after
// creation; the reflect action drives it.
func (l *Lattice) RefreshPatch(patchID string) (*Patch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	patch, exists := l.patches[patchID]
	if !exists {
		return nil, PatchNotFoundError("refresh", patchID)
	}

	var nodes [3]*Node
	for i, id := range patch.NodeIDs {
		node, ok := l.nodes[id]
		if !ok {
			return nil, NodeNotFoundError("refresh", id)
		}
		nodes[i] = node
	}

	patch.Center = geometry.Centroid(nodes[0].Position, nodes[1].Position, nodes[2].Position)
	patch.TotalEnergy = nodes[0].Energy + nodes[1].Energy + nodes[2].Energy

	return patch.Clone(), nil
}

// PatchNodes resolves a patch's three nodes as clones, in patch order.
func (l *Lattice) PatchNodes(patchID string) ([3]*Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result [3]*Node
	patch, exists := l.patches[patchID]
	if !exists {
		return result, false
	}

	for i, id := range patch.NodeIDs {
		node, ok := l.nodes[id]
		if !ok {
			return result, false
		}
		result[i] = node.Clone()
	}
	return result, true
}
