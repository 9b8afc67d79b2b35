package lattice

import (
	"fmt"

	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
)

// NodeKind is the flup polarity of a node.
type NodeKind string

const (
	KindPositive NodeKind = "positive"
	KindNegative NodeKind = "negative"
	KindCoupler  NodeKind = "coupler"
)

// Valid reports whether the kind is one of the three flup kinds.
func (k NodeKind) Valid() bool {
	return k == KindPositive || k == KindNegative || k == KindCoupler
}

// ParseNodeKind converts a string to a NodeKind
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// NodeState is the lifecycle state of a node.
type NodeState string

const (
	StateIdle         NodeState = "idle"
	StateTransmitting NodeState = "transmitting"
	StateReceiving    NodeState = "receiving"
	StateProcessing   NodeState = "processing"
)

// Valid reports whether the state is one of the four lifecycle states.
func (s NodeState) Valid() bool {
	switch s {
	case StateIdle, StateTransmitting, StateReceiving, StateProcessing:
		return true
	}
	return false
}

// ParseNodeState converts a string to a NodeState
func ParseNodeState(s string) (NodeState, error) {
	st := NodeState(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown node state %q", s)
	}
	return st, nil
}

// Node is one flup vertex of the lattice. Energy follows a soft [0,1]
// convention: mutations clamp it at zero but do not cap it above.
// Dimension is 2 or 4 and tracks the workload-adaptive switching of the
// node; it never affects action admissibility.
type Node struct {
	ID           string        `json:"id"`
	Kind         NodeKind      `json:"kind"`
	State        NodeState     `json:"state"`
	Energy       float64       `json:"energy"`
	Position     geometry.Vec3 `json:"position"`
	MirrorID     string        `json:"mirror_id,omitempty"`
	Dimension    int           `json:"dimension"`
	Overload     int           `json:"overload"`
	LastActionAt uint64        `json:"last_action_at"`
	CreatedAt    int64         `json:"created_at"`
}

// Clone creates a copy of a node
func (n *Node) Clone() *Node {
	clone := *n
	return &clone
}

// Patch is one triangle unit: exactly three distinct nodes. Center and
// TotalEnergy are frozen at creation (or an explicit refresh), not live.
type Patch struct {
	ID            string        `json:"id"`
	NodeIDs       [3]string     `json:"node_ids"`
	IsMirror      bool          `json:"is_mirror"`
	MirrorPatchID string        `json:"mirror_patch_id,omitempty"`
	Center        geometry.Vec3 `json:"center"`
	TotalEnergy   float64       `json:"total_energy"`
	Active        bool          `json:"active"`
	CreatedAt     int64         `json:"created_at"`
}

// Clone creates a copy of a patch
func (p *Patch) Clone() *Patch {
	clone := *p
	return &clone
}

// Contains reports whether the patch spans the given node.
func (p *Patch) Contains(nodeID string) bool {
	return p.NodeIDs[0] == nodeID || p.NodeIDs[1] == nodeID || p.NodeIDs[2] == nodeID
}

// Mutation is one node update applied atomically by Apply. Zero-valued
// State and Timestamp fields are left alone; Workload is only sampled
// for dimensional switching when ObserveLoad is set.
type Mutation struct {
	NodeID      string
	State       NodeState
	EnergyDelta float64
	Timestamp   uint64
	Workload    float64
	ObserveLoad bool
}

// Stats is a counter snapshot of the lattice.
type Stats struct {
	Nodes         uint64 `json:"nodes"`
	Patches       uint64 `json:"patches"`
	MirrorNodes   uint64 `json:"mirror_nodes"`
	MirrorPatches uint64 `json:"mirror_patches"`
}
