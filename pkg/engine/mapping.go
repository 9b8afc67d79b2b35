package engine

import (
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/pubsub"
)

// MapPatch projects a patch onto the icosahedron using the current
// kinds and energies of its member nodes. The result replaces any
// earlier mapping for the same patch. Unevenly energized patches score
// a low quality and come back with Valid false.
func (e *Engine) MapPatch(patchID string) (*geometry.MappingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if !e.cfg.Engine.EnablePhiMapping {
		entry := e.newEntry(audit.CategoryMapping, audit.EntityMapping, patchID, audit.StatusRejected)
		entry.Reason = "phi mapping disabled"
		entry.Level = audit.LevelRestricted
		e.trail.Append(entry)
		return nil, ErrMappingDisabled
	}

	nodes, ok := e.lattice.PatchNodes(patchID)
	if !ok {
		return nil, lattice.PatchNotFoundError("map_patch", patchID)
	}

	kinds := [3]string{string(nodes[0].Kind), string(nodes[1].Kind), string(nodes[2].Kind)}
	energies := [3]float64{nodes[0].Energy, nodes[1].Energy, nodes[2].Energy}
	result := geometry.Map(patchID, kinds, energies)
	e.mappings[patchID] = &result

	entry := e.newEntry(audit.CategoryMapping, audit.EntityMapping, patchID, audit.StatusCompleted)
	entry.Metadata = map[string]any{
		"face":    result.Face,
		"quality": result.Quality,
		"valid":   result.Valid,
	}
	e.trail.Append(entry)

	e.publish(pubsub.TopicMappingCreated, result)
	e.refreshGauges()

	out := result
	return &out, nil
}

// GetMapping returns the cached mapping for a patch, if one exists.
func (e *Engine) GetMapping(patchID string) (*geometry.MappingResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}

	m, ok := e.mappings[patchID]
	if !ok {
		return nil, false
	}
	out := *m
	return &out, true
}

// ListMappings returns all cached mappings ordered by patch ID.
func (e *Engine) ListMappings() []*geometry.MappingResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.sortedMappings()
}
