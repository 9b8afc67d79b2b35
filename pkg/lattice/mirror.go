package lattice

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

// CreateMirrorNode creates (or returns) the mirror counterpart of a
// node: same kind and energy, position reflected across the YZ plane.
// Idempotent: a second call returns the existing mirror.
func (l *Lattice) CreateMirrorNode(nodeID string) (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.createMirrorNodeLocked(nodeID)
}

// createMirrorNodeLocked does the mirror-node work. Caller holds l.mu.
func (l *Lattice) createMirrorNodeLocked(nodeID string) (*Node, error) {
	node, exists := l.nodes[nodeID]
	if !exists {
		return nil, NodeNotFoundError("mirror", nodeID)
	}

	if node.MirrorID != "" {
		if mirror, ok := l.nodes[node.MirrorID]; ok {
			return mirror.Clone(), nil
		}
	}

	if len(l.nodes) >= l.maxNodes {
		return nil, CapacityError("mirror", "node", l.maxNodes)
	}

	mirror := &Node{
		ID:        uuid.New().String(),
		Kind:      node.Kind,
		State:     StateIdle,
		Energy:    node.Energy,
		Position:  node.Position.MirrorX(),
		MirrorID:  node.ID,
		Dimension: baseDimension,
		CreatedAt: time.Now().Unix(),
	}

	l.nodes[mirror.ID] = mirror
	l.nodePatches[mirror.ID] = make([]string, 0)
	node.MirrorID = mirror.ID

	atomic.AddUint64(&l.stats.Nodes, 1)
	atomic.AddUint64(&l.stats.MirrorNodes, 1)

	l.logger.Debug("mirror node created",
		logging.NodeID(mirror.ID),
		logging.String("source_id", node.ID),
		logging.Kind(string(mirror.Kind)),
	)

	return mirror.Clone(), nil
}

// CreateMirrorPatch creates the mirror patch of a non-mirror patch,
// creating missing mirror nodes along the way and cross-linking the two
// patches. Calling it on a patch that is itself a mirror is a no-op:
// ok is false and no patch is returned. Idempotent on the original.
func (l *Lattice) CreateMirrorPatch(patchID string) (*Patch, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	patch, exists := l.patches[patchID]
	if !exists {
		return nil, false, PatchNotFoundError("mirror", patchID)
	}

	// Mirrors do not mirror again
	if patch.IsMirror {
		return nil, false, nil
	}

	if patch.MirrorPatchID != "" {
		if mirror, ok := l.patches[patch.MirrorPatchID]; ok {
			return mirror.Clone(), true, nil
		}
	}

	var mirrorIDs [3]string
	for i, id := range patch.NodeIDs {
		mirror, err := l.createMirrorNodeLocked(id)
		if err != nil {
			return nil, false, err
		}
		mirrorIDs[i] = mirror.ID
	}

	mirror, err := l.createPatchLocked("mirror", mirrorIDs, true)
	if err != nil {
		return nil, false, err
	}

	// Cross-link both directions on the live entities
	l.patches[patch.ID].MirrorPatchID = mirror.ID
	l.patches[mirror.ID].MirrorPatchID = patch.ID
	mirror.MirrorPatchID = patch.ID

	l.logger.Info("mirror patch created",
		logging.PatchID(mirror.ID),
		logging.String("source_id", patch.ID),
	)

	return mirror, true, nil
}
