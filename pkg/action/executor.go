package action

import (
	"fmt"
	"sync/atomic"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

// Counters is a snapshot of executor totals.
type Counters struct {
	Total     uint64 `json:"total"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// Executor validates and applies actions. It owns the virtual clock
// advance and writes one primary audit entry per attempt: a validation
// entry on rejection, an action entry on execution, plus one
// state_change entry per mutated entity.
type Executor struct {
	lattice   *lattice.Lattice
	clock     *Clock
	validator *Validator
	trail     *audit.AuditLog
	logger    logging.Logger

	total     uint64
	completed uint64
	failed    uint64
}

// NewExecutor creates an executor over the given lattice, clock, and
// audit trail.
func NewExecutor(l *lattice.Lattice, clock *Clock, trail *audit.AuditLog, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Executor{
		lattice:   l,
		clock:     clock,
		validator: NewValidator(l),
		trail:     trail,
		logger:    logger.With(logging.Component("executor")),
	}
}

// Validate runs the validator without executing. The verdict is audited.
func (e *Executor) Validate(a *Action) Verdict {
	verdict := e.validator.Validate(a)

	entry := e.newEntry(audit.CategoryValidation, audit.EntityAction, actionID(a), verdictStatus(verdict))
	entry.Reason = verdict.Reason
	if !verdict.Valid {
		entry.Level = audit.LevelRestricted
	}
	e.trail.Append(entry)

	return verdict
}

// Execute validates and applies one action. A rejected or failed action
// never mutates the lattice and never moves the virtual clock. Panics
// during execution are converted to failed results.
func (e *Executor) Execute(a *Action) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = e.failInternal(a, fmt.Sprintf("internal error: %v", r))
		}
	}()

	atomic.AddUint64(&e.total, 1)

	verdict := e.validator.Validate(a)
	if !verdict.Valid {
		return e.reject(a, verdict.Reason)
	}

	a.Status = StatusExecuting

	source, ok := e.lattice.GetNode(a.SourceID)
	if !ok {
		return e.failInternal(a, fmt.Sprintf("source node %s vanished mid-execution", a.SourceID))
	}

	next := e.clock.Now() + a.Duration
	mutations := e.transitions(a, source, next)
	if err := e.lattice.Apply(mutations); err != nil {
		return e.failInternal(a, err.Error())
	}

	if a.Type == TypeReflect {
		if _, err := e.lattice.RefreshPatch(a.PatchID); err != nil {
			return e.failInternal(a, err.Error())
		}
	}

	now := e.clock.Advance(a.Duration)
	a.Status = StatusCompleted
	a.ExecutedAt = now
	atomic.AddUint64(&e.completed, 1)

	primary := e.newEntry(audit.CategoryAction, audit.EntityAction, a.ID, audit.StatusCompleted)
	primary.VirtualTime = now
	primary.Metadata = map[string]any{
		"action_type": string(a.Type),
		"source_id":   a.SourceID,
	}
	if a.TargetID != "" {
		primary.Metadata["target_id"] = a.TargetID
	}
	if a.PatchID != "" {
		primary.Metadata["patch_id"] = a.PatchID
	}
	e.trail.Append(primary)

	for _, m := range mutations {
		change := e.newEntry(audit.CategoryStateChange, audit.EntityNode, m.NodeID, audit.StatusCompleted)
		change.VirtualTime = now
		change.Reason = fmt.Sprintf("state %s", m.State)
		e.trail.Append(change)
	}
	if a.Type == TypeReflect {
		refresh := e.newEntry(audit.CategoryStateChange, audit.EntityPatch, a.PatchID, audit.StatusCompleted)
		refresh.VirtualTime = now
		refresh.Reason = "snapshot refreshed"
		e.trail.Append(refresh)
	}

	e.logger.Debug("action executed",
		logging.ActionID(a.ID),
		logging.ActionType(string(a.Type)),
		logging.NodeID(a.SourceID),
		logging.VirtualTime(now),
	)

	return Result{Action: a, Executed: true, VirtualTime: now}
}

// Drain executes every queued action in FIFO order. Individual failures
// never stop the drain.
func (e *Executor) Drain(q *Queue) []Result {
	results := make([]Result, 0, q.Len())
	for {
		a, ok := q.Dequeue()
		if !ok {
			break
		}
		results = append(results, e.Execute(a))
	}
	return results
}

// Counters returns the executor totals.
func (e *Executor) Counters() Counters {
	return Counters{
		Total:     atomic.LoadUint64(&e.total),
		Completed: atomic.LoadUint64(&e.completed),
		Failed:    atomic.LoadUint64(&e.failed),
	}
}

// transitions builds the per-node mutations for an admitted action.
// Only the source pays the cost; both participants are stamped and
// sampled for workload.
func (e *Executor) transitions(a *Action, source *lattice.Node, timestamp uint64) []lattice.Mutation {
	sourceState, targetState := transitionStates(a.Type, source.State)

	mutations := []lattice.Mutation{{
		NodeID:      a.SourceID,
		State:       sourceState,
		EnergyDelta: -a.Cost,
		Timestamp:   timestamp,
		Workload:    a.Cost,
		ObserveLoad: true,
	}}

	if a.Type.RequiresTarget() {
		mutations = append(mutations, lattice.Mutation{
			NodeID:      a.TargetID,
			State:       targetState,
			Timestamp:   timestamp,
			Workload:    a.Cost,
			ObserveLoad: true,
		})
	}
	return mutations
}

// transitionStates is the exact post-execution state table.
func transitionStates(t Type, current lattice.NodeState) (source, target lattice.NodeState) {
	switch t {
	case TypeTransmit:
		return lattice.StateIdle, lattice.StateReceiving
	case TypeProcess:
		return lattice.StateProcessing, lattice.StateIdle
	case TypeReceive:
		return lattice.StateIdle, lattice.StateProcessing
	case TypeFeedback:
		return lattice.StateIdle, lattice.StateTransmitting
	default:
		// Reflect leaves the source where it was
		return current, ""
	}
}

func (e *Executor) reject(a *Action, reason string) Result {
	a.Status = StatusFailed
	a.Error = reason
	atomic.AddUint64(&e.failed, 1)

	entry := e.newEntry(audit.CategoryValidation, audit.EntityAction, a.ID, audit.StatusRejected)
	entry.Reason = reason
	entry.Level = audit.LevelRestricted
	e.trail.Append(entry)

	e.logger.Debug("action rejected",
		logging.ActionID(a.ID),
		logging.ActionType(string(a.Type)),
		logging.String("reason", reason),
	)

	return Result{Action: a, Executed: false, Reason: reason, VirtualTime: e.clock.Now()}
}

func (e *Executor) failInternal(a *Action, reason string) Result {
	a.Status = StatusFailed
	a.Error = reason
	atomic.AddUint64(&e.failed, 1)

	entry := e.newEntry(audit.CategoryAction, audit.EntityAction, actionID(a), audit.StatusFailed)
	entry.Reason = reason
	entry.Level = audit.LevelClassified
	e.trail.Append(entry)

	e.logger.Error("action execution failed",
		logging.ActionID(actionID(a)),
		logging.String("reason", reason),
	)

	return Result{Action: a, Executed: false, Reason: reason, VirtualTime: e.clock.Now()}
}

func (e *Executor) newEntry(category audit.Category, kind audit.EntityKind, id string, status audit.Status) *audit.Entry {
	entry := audit.NewEntry(category, kind, id, status)
	entry.VirtualTime = e.clock.Now()
	entry.Counters = audit.Counters{
		Nodes:       e.lattice.NodeCount(),
		Patches:     e.lattice.PatchCount(),
		Actions:     atomic.LoadUint64(&e.total),
		MemoryBytes: e.lattice.MemoryEstimate(),
	}
	return entry
}

func actionID(a *Action) string {
	if a == nil {
		return ""
	}
	return a.ID
}

func verdictStatus(v Verdict) audit.Status {
	if v.Valid {
		return audit.StatusAdmitted
	}
	return audit.StatusRejected
}
