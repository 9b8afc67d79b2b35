// Package engine is the facade over the whole system: the lattice, the
// action pipeline with its virtual clock, φ-mapping, the audit trail,
// and the event bus. One mutex serializes every operation, so callers
// observe a consistent ordering of state changes, audit entries, and
// published events.
package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
	"github.com/xepoctpat/H3X-sub004/pkg/pubsub"
)

// Engine composes the lattice, executor, clock, audit trail, mappings,
// and event bus behind a single mutex.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	lattice  *lattice.Lattice
	clock    *action.Clock
	queue    *action.Queue
	executor *action.Executor
	trail    *audit.AuditLog
	events   *pubsub.PubSub
	registry *metrics.Registry
	logger   logging.Logger

	// φ-mapping results by patch ID
	mappings map[string]*geometry.MappingResult

	startedAt time.Time
	closed    bool
}

// New builds an engine from the given options. The config is validated
// fail-fast; a nil config means the documented defaults.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("engine"))

	lat, err := lattice.New(lattice.Config{
		MaxNodes:   cfg.Engine.MaxNodes,
		MaxPatches: cfg.Engine.MaxPatches,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	clock := action.NewClock()
	trail := audit.NewAuditLog(cfg.Engine.AuditCap)

	e := &Engine{
		cfg:       cfg,
		lattice:   lat,
		clock:     clock,
		queue:     action.NewQueue(),
		executor:  action.NewExecutor(lat, clock, trail, opts.Logger),
		trail:     trail,
		events:    pubsub.NewPubSub(),
		registry:  opts.Metrics,
		logger:    logger,
		mappings:  make(map[string]*geometry.MappingResult),
		startedAt: time.Now(),
	}

	logger.Info("engine started",
		logging.Int("max_nodes", cfg.Engine.MaxNodes),
		logging.Int("max_patches", cfg.Engine.MaxPatches),
		logging.Bool("mirroring", cfg.Engine.EnableMirroring),
		logging.Bool("phi_mapping", cfg.Engine.EnablePhiMapping),
	)
	return e, nil
}

// CreateNode adds a node to the lattice and audits the creation.
func (e *Engine) CreateNode(kind lattice.NodeKind, position geometry.Vec3, energy float64) (*lattice.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	node, err := e.lattice.CreateNode(kind, position, energy)
	if err != nil {
		e.auditRejectedCreation(audit.EntityNode, err)
		return nil, err
	}

	entry := e.newEntry(audit.CategoryCreation, audit.EntityNode, node.ID, audit.StatusCompleted)
	entry.Metadata = map[string]any{"kind": string(node.Kind)}
	e.trail.Append(entry)

	e.publish(pubsub.TopicNodeCreated, node.Clone())
	e.refreshGauges()
	return node, nil
}

// GetNode returns a snapshot of one node.
func (e *Engine) GetNode(nodeID string) (*lattice.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}
	return e.lattice.GetNode(nodeID)
}

// ListNodes returns snapshots of all nodes ordered by ID.
func (e *Engine) ListNodes() []*lattice.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.lattice.ListNodes()
}

// CreatePatch spans a triangle over three distinct nodes.
func (e *Engine) CreatePatch(nodeA, nodeB, nodeC string) (*lattice.Patch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	patch, err := e.lattice.CreatePatch(nodeA, nodeB, nodeC)
	if err != nil {
		e.auditRejectedCreation(audit.EntityPatch, err)
		return nil, err
	}

	entry := e.newEntry(audit.CategoryCreation, audit.EntityPatch, patch.ID, audit.StatusCompleted)
	entry.Metadata = map[string]any{"total_energy": patch.TotalEnergy}
	e.trail.Append(entry)

	e.publish(pubsub.TopicPatchCreated, patch.Clone())
	e.refreshGauges()
	return patch, nil
}

// GetPatch returns a snapshot of one patch.
func (e *Engine) GetPatch(patchID string) (*lattice.Patch, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}
	return e.lattice.GetPatch(patchID)
}

// ListPatches returns snapshots of all patches ordered by ID.
func (e *Engine) ListPatches() []*lattice.Patch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.lattice.ListPatches()
}

// CreateMirrorNode creates (or returns) the mirror image of a node.
// Mirror operations require the mirror lattice to be enabled.
func (e *Engine) CreateMirrorNode(nodeID string) (*lattice.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if !e.cfg.Engine.EnableMirroring {
		return nil, ErrMirroringDisabled
	}

	mirror, err := e.lattice.CreateMirrorNode(nodeID)
	if err != nil {
		e.auditRejectedCreation(audit.EntityNode, err)
		return nil, err
	}

	entry := e.newEntry(audit.CategoryCreation, audit.EntityNode, mirror.ID, audit.StatusCompleted)
	entry.Metadata = map[string]any{"mirror_of": nodeID}
	e.trail.Append(entry)

	e.publish(pubsub.TopicMirrorCreated, mirror.Clone())
	e.refreshGauges()
	return mirror, nil
}

// CreateMirrorPatch creates the mirror image of a patch, mirroring its
// member nodes as needed. The bool is false when no mirror comes back:
// the patch is itself a mirror, or mirroring is disabled. Neither case
// is an error.
func (e *Engine) CreateMirrorPatch(patchID string) (*lattice.Patch, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false, ErrEngineClosed
	}
	if !e.cfg.Engine.EnableMirroring {
		return nil, false, nil
	}

	patch, ok, err := e.lattice.CreateMirrorPatch(patchID)
	if err != nil {
		e.auditRejectedCreation(audit.EntityPatch, err)
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	entry := e.newEntry(audit.CategoryCreation, audit.EntityPatch, patch.ID, audit.StatusCompleted)
	entry.Metadata = map[string]any{"mirror_of": patchID}
	e.trail.Append(entry)

	e.publish(pubsub.TopicMirrorCreated, patch.Clone())
	e.refreshGauges()
	return patch, ok, nil
}

// Adjacency returns the IDs of all neighbors of a node.
func (e *Engine) Adjacency(nodeID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.lattice.Adjacency(nodeID)
}

// AreNeighbors reports whether two nodes share a patch or a mirror link.
func (e *Engine) AreNeighbors(a, b string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.lattice.AreNeighbors(a, b)
}

// SetNodeState forces a node into the given state. Actions are the
// normal way state moves; this is the operator override that arms a
// cold lattice for its first action.
func (e *Engine) SetNodeState(nodeID string, state lattice.NodeState) (*lattice.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if !state.Valid() {
		return nil, fmt.Errorf("unknown node state %q", state)
	}

	if err := e.lattice.Apply([]lattice.Mutation{{NodeID: nodeID, State: state}}); err != nil {
		return nil, err
	}
	node, _ := e.lattice.GetNode(nodeID)

	entry := e.newEntry(audit.CategoryStateChange, audit.EntityNode, nodeID, audit.StatusCompleted)
	entry.Reason = fmt.Sprintf("state %s", state)
	e.trail.Append(entry)

	e.publish(pubsub.TopicStateChanged, node.Clone())
	e.refreshGauges()
	return node, nil
}

// VirtualTime returns the current clock reading in ticks.
func (e *Engine) VirtualTime() uint64 {
	return e.clock.Now()
}

// Ping reports whether the engine is accepting operations. Health
// probes call this.
func (e *Engine) Ping() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// Statistics returns a snapshot of the whole engine. It keeps working
// after Close so shutdown paths can log a final state.
func (e *Engine) Statistics() EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.lattice.Statistics()
	return EngineStatus{
		VirtualTime:   e.clock.Now(),
		Nodes:         int(stats.Nodes),
		Patches:       int(stats.Patches),
		MirrorNodes:   int(stats.MirrorNodes),
		MirrorPatches: int(stats.MirrorPatches),
		MemoryBytes:   e.lattice.MemoryEstimate(),
		Actions:       e.executor.Counters(),
		QueueDepth:    e.queue.Len(),
		Mappings:      len(e.mappings),
		AuditRetained: e.trail.Count(),
		AuditAppended: e.trail.TotalAppended(),
		UptimeSeconds: time.Since(e.startedAt).Seconds(),
		Mirroring:     e.cfg.Engine.EnableMirroring,
		PhiMapping:    e.cfg.Engine.EnablePhiMapping,
	}
}

// AuditRecent returns up to n of the newest audit entries the given
// clearance may see, newest first.
func (e *Engine) AuditRecent(n int, clearance audit.SecurityLevel) []*audit.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || n < 1 {
		return nil
	}

	visible := make([]*audit.Entry, 0, n)
	for _, entry := range e.trail.Recent(e.trail.Count()) {
		if entry.Level > clearance {
			continue
		}
		visible = append(visible, entry)
		if len(visible) == n {
			break
		}
	}
	return visible
}

// AuditQuery returns filtered audit entries oldest-first, capped at the
// given clearance.
func (e *Engine) AuditQuery(filter *audit.Filter, clearance audit.SecurityLevel) []*audit.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	entries := e.trail.Events(filter)
	visible := make([]*audit.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Level > clearance {
			continue
		}
		visible = append(visible, entry)
	}
	return visible
}

// ExportAudit streams audit entries to w. The export never rises above
// the caller's clearance regardless of what the options ask for. The
// collection snapshots the ring, so a slow writer cannot stall the
// engine.
func (e *Engine) ExportAudit(w io.Writer, opts *audit.ExportOptions, clearance audit.SecurityLevel) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	exporter := audit.NewExporter(e.trail)
	e.mu.Unlock()

	o := audit.DefaultExportOptions()
	if opts != nil {
		copied := *opts
		o = &copied
	}
	if o.MaxLevel > clearance {
		o.MaxLevel = clearance
	}
	return exporter.Export(w, o)
}

// Subscribe registers for engine events. With no topics it covers
// everything the engine publishes.
func (e *Engine) Subscribe(ctx context.Context, topics ...string) (*pubsub.Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.events.Subscribe(ctx, topics...)
}

// Close shuts the engine down. Every later operation returns
// ErrEngineClosed, including Close itself.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.closed = true

	entry := e.newEntry(audit.CategoryStateChange, audit.EntityEngine, "", audit.StatusCompleted)
	entry.Reason = "engine closed"
	e.trail.Append(entry)

	e.events.Shutdown()
	e.logger.Info("engine closed",
		logging.VirtualTime(e.clock.Now()),
		logging.Uint64("audit_entries", e.trail.TotalAppended()),
	)
	return nil
}

// auditRejectedCreation records a creation attempt the lattice refused,
// capacity exhaustion included. The entity never existed, so the entry
// carries no ID.
func (e *Engine) auditRejectedCreation(kind audit.EntityKind, err error) {
	entry := e.newEntry(audit.CategoryCreation, kind, "", audit.StatusRejected)
	entry.Reason = err.Error()
	entry.Level = audit.LevelRestricted
	e.trail.Append(entry)
}

// newEntry stamps an audit entry with the clock reading and the engine
// counter snapshot.
func (e *Engine) newEntry(category audit.Category, kind audit.EntityKind, id string, status audit.Status) *audit.Entry {
	entry := audit.NewEntry(category, kind, id, status)
	entry.VirtualTime = e.clock.Now()
	entry.Counters = audit.Counters{
		Nodes:       e.lattice.NodeCount(),
		Patches:     e.lattice.PatchCount(),
		Actions:     e.executor.Counters().Total,
		MemoryBytes: e.lattice.MemoryEstimate(),
	}
	return entry
}

// publish wraps a payload in an event envelope and fans it out.
func (e *Engine) publish(topic string, payload any) {
	_, dropped := e.events.Publish(pubsub.Event{
		Topic:       topic,
		VirtualTime: e.clock.Now(),
		At:          time.Now().Unix(),
		Payload:     payload,
	})
	if e.registry != nil {
		e.registry.RecordEventPublished(topic)
		for i := 0; i < dropped; i++ {
			e.registry.RecordEventDropped(topic)
		}
	}
}

// refreshGauges pushes the current engine totals into the metrics
// registry, when one is attached.
func (e *Engine) refreshGauges() {
	if e.registry == nil {
		return
	}
	stats := e.lattice.Statistics()
	e.registry.UpdateLattice(
		int(stats.Nodes),
		int(stats.Patches),
		int(stats.MirrorNodes),
		int(stats.MirrorPatches),
		e.lattice.MemoryEstimate(),
	)
	e.registry.UpdateAudit(e.trail.TotalAppended(), e.trail.Count())
	e.registry.SetVirtualTime(e.clock.Now())
	e.registry.SetQueueDepth(e.queue.Len())
}

// sortedMappings returns the cached mapping results ordered by patch ID.
// Callers must hold e.mu.
func (e *Engine) sortedMappings() []*geometry.MappingResult {
	out := make([]*geometry.MappingResult, 0, len(e.mappings))
	for _, m := range e.mappings {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatchID < out[j].PatchID })
	return out
}

// resultStatus maps an execution result onto a metrics label.
func resultStatus(res action.Result) string {
	switch {
	case res.Executed:
		return "completed"
	case strings.HasPrefix(res.Reason, "internal error"):
		return "failed"
	default:
		return "rejected"
	}
}
