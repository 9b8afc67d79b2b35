// Package action holds the action model and the pipeline that admits,
// executes, and queues actions against the lattice. Validation is purely
// observational; only the executor mutates nodes, and the virtual clock
// moves only on successful execution.
package action

import (
	"fmt"
	"strings"

	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

// stateRule is the state-compatibility requirement for one action type:
// the exact source state and the admissible target states.
type stateRule struct {
	source  lattice.NodeState
	targets []lattice.NodeState
}

// Reflect carries no entry: it is admissible from any source state and
// has no target.
var stateRules = map[Type]stateRule{
	TypeTransmit: {source: lattice.StateTransmitting, targets: []lattice.NodeState{lattice.StateReceiving, lattice.StateIdle}},
	TypeProcess:  {source: lattice.StateProcessing, targets: []lattice.NodeState{lattice.StateIdle}},
	TypeReceive:  {source: lattice.StateReceiving, targets: []lattice.NodeState{lattice.StateTransmitting, lattice.StateProcessing}},
	TypeFeedback: {source: lattice.StateProcessing, targets: []lattice.NodeState{lattice.StateIdle}},
}

// Validator decides admissibility of actions against the current
// lattice. It never mutates anything.
type Validator struct {
	lattice *lattice.Lattice
}

// NewValidator creates a validator over the given lattice.
func NewValidator(l *lattice.Lattice) *Validator {
	return &Validator{lattice: l}
}

// Validate checks an action and returns the verdict. Checks run in a
// fixed order and short-circuit on the first failure: resolution, range
// checks, energy sufficiency, adjacency, then state compatibility.
func (v *Validator) Validate(a *Action) Verdict {
	if a == nil {
		return reject("nil action")
	}
	if !a.Type.Valid() {
		return reject(fmt.Sprintf("unknown action type %q", string(a.Type)))
	}

	source, ok := v.lattice.GetNode(a.SourceID)
	if !ok {
		return reject(fmt.Sprintf("unknown source node %s", a.SourceID))
	}

	var target *lattice.Node
	if a.Type.RequiresTarget() {
		target, ok = v.lattice.GetNode(a.TargetID)
		if !ok {
			return reject(fmt.Sprintf("unknown target node %s", a.TargetID))
		}
		if a.SourceID == a.TargetID {
			return reject("source and target are the same node")
		}
	}

	if a.Cost < 0 {
		return reject("negative energy cost")
	}
	if a.Duration < 1 {
		return reject("duration must be at least one tick")
	}
	if source.Energy < a.Cost {
		return reject(fmt.Sprintf("insufficient energy: have %.3f, need %.3f", source.Energy, a.Cost))
	}

	if a.Type == TypeReflect {
		if a.PatchID == "" {
			return reject("reflect requires a patch")
		}
		if _, ok := v.lattice.GetPatch(a.PatchID); !ok {
			return reject(fmt.Sprintf("unknown patch %s", a.PatchID))
		}
		return Verdict{Valid: true}
	}

	if !v.lattice.AreNeighbors(a.SourceID, a.TargetID) {
		return reject(fmt.Sprintf("nodes %s and %s are not adjacent", a.SourceID, a.TargetID))
	}

	rule := stateRules[a.Type]
	if source.State != rule.source {
		return reject(fmt.Sprintf("source must be %s, is %s", rule.source, source.State))
	}
	if !admissibleTarget(rule.targets, target.State) {
		return reject(fmt.Sprintf("target must be %s, is %s", joinStates(rule.targets), target.State))
	}

	return Verdict{Valid: true}
}

func reject(reason string) Verdict {
	return Verdict{Valid: false, Reason: reason}
}

func admissibleTarget(admissible []lattice.NodeState, state lattice.NodeState) bool {
	for _, s := range admissible {
		if s == state {
			return true
		}
	}
	return false
}

func joinStates(states []lattice.NodeState) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " or ")
}
