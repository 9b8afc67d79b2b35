package audit

import (
	"time"
)

// Category classifies what kind of engine decision an entry records.
type Category string

const (
	CategoryAction      Category = "action"
	CategoryStateChange Category = "state_change"
	CategoryCreation    Category = "creation"
	CategoryMapping     Category = "mapping"
	CategoryValidation  Category = "validation"
)

// EntityKind identifies the entity an entry is about.
type EntityKind string

const (
	EntityNode    EntityKind = "node"
	EntityPatch   EntityKind = "patch"
	EntityAction  EntityKind = "action"
	EntityMapping EntityKind = "mapping"
	EntityEngine  EntityKind = "engine"
)

// Status is the outcome recorded by an entry.
type Status string

const (
	StatusAdmitted  Status = "admitted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SecurityLevel tags entries for access filtering. Ordinal only, no
// cryptographic meaning: public < restricted < classified.
type SecurityLevel int

const (
	LevelPublic SecurityLevel = iota
	LevelRestricted
	LevelClassified
)

// String returns the string representation of a security level
func (l SecurityLevel) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelRestricted:
		return "restricted"
	case LevelClassified:
		return "classified"
	default:
		return "unknown"
	}
}

// ParseSecurityLevel converts a string to a SecurityLevel, defaulting to public
func ParseSecurityLevel(s string) SecurityLevel {
	switch s {
	case "classified":
		return LevelClassified
	case "restricted":
		return LevelRestricted
	default:
		return LevelPublic
	}
}

// Counters is the engine counter snapshot frozen into each entry.
type Counters struct {
	Nodes       int    `json:"nodes"`
	Patches     int    `json:"patches"`
	Actions     uint64 `json:"actions"`
	MemoryBytes uint64 `json:"memory_bytes"`
}

// Entry is one immutable record of an engine decision. Sequence and
// Timestamp are assigned on append; callers fill the rest.
type Entry struct {
	ID          string         `json:"id"`
	Sequence    uint64         `json:"sequence"`
	Timestamp   time.Time      `json:"timestamp"`
	Category    Category       `json:"category"`
	EntityKind  EntityKind     `json:"entity_kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	Status      Status         `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Level       SecurityLevel  `json:"level"`
	VirtualTime uint64         `json:"virtual_time"`
	Counters    Counters       `json:"counters"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Filter narrows Events queries. Zero values mean "no constraint".
type Filter struct {
	Category      Category
	EntityKind    EntityKind
	EntityID      string
	Status        Status
	MinLevel      SecurityLevel
	SinceSequence uint64
	StartTime     *time.Time
	EndTime       *time.Time
	// Limit > 0 keeps only the most recent N matches.
	Limit int
}
