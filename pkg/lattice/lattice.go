// Package lattice owns the triangulated graph: flup nodes, triangle
// patches, the mirror (anti-flup) layer, and adjacency. All returned
// entities are clones; live state never escapes the store. Node state,
// energy, and timestamps change only through Apply, which the action
// executor drives.
package lattice

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

// Config holds construction parameters for a Lattice.
type Config struct {
	MaxNodes   int
	MaxPatches int
	Logger     logging.Logger
}

// Lattice is the in-memory node/patch store.
type Lattice struct {
	nodes   map[string]*Node
	patches map[string]*Patch

	// Adjacency index: node ID -> IDs of patches spanning it
	nodePatches map[string][]string

	maxNodes   int
	maxPatches int

	mu     sync.RWMutex
	logger logging.Logger

	// Statistics (atomic access)
	stats Stats
}

// New creates a lattice. Capacities must be positive.
func New(cfg Config) (*Lattice, error) {
	if cfg.MaxNodes < 1 {
		return nil, NewError("new").Node("").Context("max nodes must be positive").Cause(ErrCapacityExceeded).Err()
	}
	if cfg.MaxPatches < 1 {
		return nil, NewError("new").Patch("").Context("max patches must be positive").Cause(ErrCapacityExceeded).Err()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Lattice{
		nodes:       make(map[string]*Node),
		patches:     make(map[string]*Patch),
		nodePatches: make(map[string][]string),
		maxNodes:    cfg.MaxNodes,
		maxPatches:  cfg.MaxPatches,
		logger:      logger.With(logging.Component("lattice")),
	}, nil
}

// CreateNode creates a new node in the idle state. Negative energy is
// floored at zero.
func (l *Lattice) CreateNode(kind NodeKind, position geometry.Vec3, energy float64) (*Node, error) {
	if !kind.Valid() {
		return nil, NewError("create").Node("").Context(string(kind)).Cause(ErrInvalidKind).Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.nodes) >= l.maxNodes {
		return nil, CapacityError("create", "node", l.maxNodes)
	}

	if energy < 0 {
		energy = 0
	}

	node := &Node{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     StateIdle,
		Energy:    energy,
		Position:  position,
		Dimension: baseDimension,
		CreatedAt: time.Now().Unix(),
	}

	l.nodes[node.ID] = node
	l.nodePatches[node.ID] = make([]string, 0)

	atomic.AddUint64(&l.stats.Nodes, 1)

	l.logger.Debug("node created",
		logging.NodeID(node.ID),
		logging.Kind(string(kind)),
		logging.Energy(energy),
	)

	return node.Clone(), nil
}

// GetNode retrieves a node by ID. An unknown ID is not an error.
func (l *Lattice) GetNode(nodeID string) (*Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	node, exists := l.nodes[nodeID]
	if !exists {
		return nil, false
	}
	return node.Clone(), true
}

// ListNodes returns clones of all nodes, ordered by ID for stable output.
func (l *Lattice) ListNodes() []*Node {
	l.mu.RLock()
	defer l.mu.RUnlock()

	nodes := make([]*Node, 0, len(l.nodes))
	for _, node := range l.nodes {
		nodes = append(nodes, node.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// CreatePatch creates a triangle over three existing, distinct nodes.
// Center and total energy are derived once, here.
func (l *Lattice) CreatePatch(nodeA, nodeB, nodeC string) (*Patch, error) {
	if nodeA == nodeB || nodeB == nodeC || nodeA == nodeC {
		return nil, NewError("create").Patch("").Cause(ErrDuplicateNodes).Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.createPatchLocked("create", [3]string{nodeA, nodeB, nodeC}, false)
}

// createPatchLocked is the shared patch constructor. Caller holds l.mu.
func (l *Lattice) createPatchLocked(op string, nodeIDs [3]string, isMirror bool) (*Patch, error) {
	for _, id := range nodeIDs {
		if _, exists := l.nodes[id]; !exists {
			return nil, NodeNotFoundError(op, id)
		}
	}

	if len(l.patches) >= l.maxPatches {
		return nil, CapacityError(op, "patch", l.maxPatches)
	}

	a, b, c := l.nodes[nodeIDs[0]], l.nodes[nodeIDs[1]], l.nodes[nodeIDs[2]]

	patch := &Patch{
		ID:          uuid.New().String(),
		NodeIDs:     nodeIDs,
		IsMirror:    isMirror,
		Center:      geometry.Centroid(a.Position, b.Position, c.Position),
		TotalEnergy: a.Energy + b.Energy + c.Energy,
		Active:      true,
		CreatedAt:   time.Now().Unix(),
	}

	l.patches[patch.ID] = patch
	for _, id := range nodeIDs {
		l.nodePatches[id] = append(l.nodePatches[id], patch.ID)
	}

	atomic.AddUint64(&l.stats.Patches, 1)
	if isMirror {
		atomic.AddUint64(&l.stats.MirrorPatches, 1)
	}

	l.logger.Debug("patch created",
		logging.PatchID(patch.ID),
		logging.Bool("mirror", isMirror),
		logging.Energy(patch.TotalEnergy),
	)

	return patch.Clone(), nil
}

// GetPatch retrieves a patch by ID. An unknown ID is not an error.
func (l *Lattice) GetPatch(patchID string) (*Patch, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	patch, exists := l.patches[patchID]
	if !exists {
		return nil, false
	}
	return patch.Clone(), true
}

// ListPatches returns clones of all patches, ordered by ID.
func (l *Lattice) ListPatches() []*Patch {
	l.mu.RLock()
	defer l.mu.RUnlock()

	patches := make([]*Patch, 0, len(l.patches))
	for _, patch := range l.patches {
		patches = append(patches, patch.Clone())
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].ID < patches[j].ID })
	return patches
}

// Adjacency returns the IDs of nodes adjacent to the given node, sorted:
// every node sharing at least one patch with it, plus its direct mirror
// partner when linked. Unknown nodes yield an empty slice.
func (l *Lattice) Adjacency(nodeID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	node, exists := l.nodes[nodeID]
	if !exists {
		return []string{}
	}

	seen := make(map[string]bool)
	for _, patchID := range l.nodePatches[nodeID] {
		patch, ok := l.patches[patchID]
		if !ok {
			continue
		}
		for _, id := range patch.NodeIDs {
			if id != nodeID {
				seen[id] = true
			}
		}
	}

	// A direct mirror link counts as adjacency
	if node.MirrorID != "" {
		if _, ok := l.nodes[node.MirrorID]; ok {
			seen[node.MirrorID] = true
		}
	}

	neighbors := make([]string, 0, len(seen))
	for id := range seen {
		neighbors = append(neighbors, id)
	}
	sort.Strings(neighbors)
	return neighbors
}

// AreNeighbors reports whether two nodes are adjacent: both exist and
// either share at least one patch or are directly linked as mirrors.
// Unknown IDs and self-comparison are false, not errors. Symmetric.
func (l *Lattice) AreNeighbors(a, b string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if a == b {
		return false
	}
	nodeA, okA := l.nodes[a]
	if !okA {
		return false
	}
	if _, okB := l.nodes[b]; !okB {
		return false
	}

	for _, patchID := range l.nodePatches[a] {
		if patch, ok := l.patches[patchID]; ok && patch.Contains(b) {
			return true
		}
	}
	return nodeA.MirrorID == b
}

// NodeCount returns the number of nodes.
func (l *Lattice) NodeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.nodes)
}

// PatchCount returns the number of patches.
func (l *Lattice) PatchCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patches)
}

// Statistics returns lattice counters (thread-safe using atomic operations).
func (l *Lattice) Statistics() Stats {
	return Stats{
		Nodes:         atomic.LoadUint64(&l.stats.Nodes),
		Patches:       atomic.LoadUint64(&l.stats.Patches),
		MirrorNodes:   atomic.LoadUint64(&l.stats.MirrorNodes),
		MirrorPatches: atomic.LoadUint64(&l.stats.MirrorPatches),
	}
}

// Approximate per-entity footprints for the audit counter snapshot.
const (
	nodeFootprintBytes  = 256
	patchFootprintBytes = 192
)

// MemoryEstimate returns a rough in-memory footprint of the lattice.
func (l *Lattice) MemoryEstimate() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.nodes))*nodeFootprintBytes + uint64(len(l.patches))*patchFootprintBytes
}
