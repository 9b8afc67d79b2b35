package action

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the kind of work an action performs between nodes.
type Type string

const (
	TypeTransmit Type = "transmit"
	TypeProcess  Type = "process"
	TypeReceive  Type = "receive"
	TypeFeedback Type = "feedback"

	// TypeReflect is the patch-scoped fifth variant: no target node, the
	// action names a patch whose derived snapshot it refreshes.
	TypeReflect Type = "reflect"
)

// Valid reports whether the type is one of the five action types.
func (t Type) Valid() bool {
	switch t {
	case TypeTransmit, TypeProcess, TypeReceive, TypeFeedback, TypeReflect:
		return true
	}
	return false
}

// RequiresTarget reports whether the type acts on a target node.
func (t Type) RequiresTarget() bool {
	return t != TypeReflect
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown action type %q", s)
	}
	return t, nil
}

// Status is the lifecycle status of an action.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Action is one proposed unit of work. Callers create it pending; the
// executor owns it from there and leaves it completed or failed.
// ExecutedAt is the virtual time after a successful execution.
type Action struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	SourceID   string          `json:"source_id"`
	TargetID   string          `json:"target_id,omitempty"`
	PatchID    string          `json:"patch_id,omitempty"`
	Cost       float64         `json:"cost"`
	Duration   uint64          `json:"duration"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	ExecutedAt uint64          `json:"executed_at,omitempty"`
}

// New creates a pending action between two nodes.
func New(t Type, sourceID, targetID string, cost float64, duration uint64) *Action {
	return &Action{
		ID:        uuid.New().String(),
		Type:      t,
		SourceID:  sourceID,
		TargetID:  targetID,
		Cost:      cost,
		Duration:  duration,
		Status:    StatusPending,
		CreatedAt: time.Now().Unix(),
	}
}

// NewReflect creates a pending reflect action over a patch.
func NewReflect(sourceID, patchID string, cost float64, duration uint64) *Action {
	return &Action{
		ID:        uuid.New().String(),
		Type:      TypeReflect,
		SourceID:  sourceID,
		PatchID:   patchID,
		Cost:      cost,
		Duration:  duration,
		Status:    StatusPending,
		CreatedAt: time.Now().Unix(),
	}
}

// Clone creates a copy of an action. The payload bytes are shared and
// treated as read-only.
func (a *Action) Clone() *Action {
	clone := *a
	return &clone
}

// Verdict is the validator's answer for one action.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Result is the outcome of one execution attempt. VirtualTime is the
// clock reading after the attempt; it only moves when Executed is true.
type Result struct {
	Action      *Action `json:"action"`
	Executed    bool    `json:"executed"`
	Reason      string  `json:"reason,omitempty"`
	VirtualTime uint64  `json:"virtual_time"`
}
