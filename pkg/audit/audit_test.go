package audit

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestAuditLog_Append tests basic entry recording
func TestAuditLog_Append(t *testing.T) {
	log := NewAuditLog(100)

	tests := []struct {
		name  string
		entry *Entry
	}{
		{
			name: "node creation entry",
			entry: &Entry{
				Category:   CategoryCreation,
				EntityKind: EntityNode,
				EntityID:   "node-1",
				Status:     StatusCompleted,
			},
		},
		{
			name: "rejected validation entry",
			entry: &Entry{
				Category:   CategoryValidation,
				EntityKind: EntityAction,
				EntityID:   "action-1",
				Status:     StatusRejected,
				Reason:     "unknown node",
			},
		},
		{
			name: "classified mapping entry",
			entry: &Entry{
				Category:   CategoryMapping,
				EntityKind: EntityPatch,
				EntityID:   "patch-1",
				Status:     StatusCompleted,
				Level:      LevelClassified,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.Append(tt.entry)

			if tt.entry.Sequence == 0 {
				t.Error("Expected non-zero sequence")
			}
			if tt.entry.Timestamp.IsZero() {
				t.Error("Expected non-zero timestamp")
			}
			if tt.entry.ID == "" {
				t.Error("Expected non-empty entry ID")
			}
		})
	}

	if log.Count() != len(tests) {
		t.Errorf("Count() = %d, want %d", log.Count(), len(tests))
	}
}

// TestAuditLog_SequenceMonotonic verifies sequences strictly increase
func TestAuditLog_SequenceMonotonic(t *testing.T) {
	log := NewAuditLog(10)

	var last uint64
	for i := 0; i < 25; i++ {
		entry := NewEntry(CategoryAction, EntityAction, fmt.Sprintf("a-%d", i), StatusCompleted)
		log.Append(entry)
		if entry.Sequence <= last {
			t.Fatalf("sequence not monotonic: %d after %d", entry.Sequence, last)
		}
		last = entry.Sequence
	}

	if log.TotalAppended() != 25 {
		t.Errorf("TotalAppended() = %d, want 25", log.TotalAppended())
	}
}

// TestAuditLog_TrimsOldest verifies the ring discards from the oldest end
func TestAuditLog_TrimsOldest(t *testing.T) {
	log := NewAuditLog(5)

	for i := 0; i < 7; i++ {
		log.Append(NewEntry(CategoryAction, EntityAction, fmt.Sprintf("a-%d", i), StatusCompleted))
	}

	if log.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", log.Count())
	}

	events := log.Events(nil)
	if len(events) != 5 {
		t.Fatalf("Events() returned %d, want 5", len(events))
	}

	// Oldest survivor is sequence 3 (1 and 2 were trimmed)
	if events[0].Sequence != 3 {
		t.Errorf("oldest surviving sequence = %d, want 3", events[0].Sequence)
	}
	if events[4].Sequence != 7 {
		t.Errorf("newest sequence = %d, want 7", events[4].Sequence)
	}
}

// TestAuditLog_Events_Filtering tests retrieval with filters
func TestAuditLog_Events_Filtering(t *testing.T) {
	log := NewAuditLog(100)

	log.Append(&Entry{Category: CategoryCreation, EntityKind: EntityNode, EntityID: "n-1", Status: StatusCompleted})
	log.Append(&Entry{Category: CategoryValidation, EntityKind: EntityAction, EntityID: "a-1", Status: StatusRejected, Reason: "insufficient energy"})
	log.Append(&Entry{Category: CategoryAction, EntityKind: EntityAction, EntityID: "a-2", Status: StatusCompleted})
	log.Append(&Entry{Category: CategoryMapping, EntityKind: EntityPatch, EntityID: "p-1", Status: StatusCompleted, Level: LevelRestricted})
	log.Append(&Entry{Category: CategoryValidation, EntityKind: EntityAction, EntityID: "a-3", Status: StatusRejected, Reason: "unknown node", Level: LevelClassified})

	t.Run("by category", func(t *testing.T) {
		events := log.Events(&Filter{Category: CategoryValidation})
		if len(events) != 2 {
			t.Errorf("got %d validation entries, want 2", len(events))
		}
	})

	t.Run("by entity kind", func(t *testing.T) {
		events := log.Events(&Filter{EntityKind: EntityPatch})
		if len(events) != 1 {
			t.Errorf("got %d patch entries, want 1", len(events))
		}
	})

	t.Run("by entity id", func(t *testing.T) {
		events := log.Events(&Filter{EntityID: "a-2"})
		if len(events) != 1 {
			t.Errorf("got %d entries for a-2, want 1", len(events))
		}
	})

	t.Run("by status", func(t *testing.T) {
		events := log.Events(&Filter{Status: StatusRejected})
		if len(events) != 2 {
			t.Errorf("got %d rejected entries, want 2", len(events))
		}
	})

	t.Run("by minimum level", func(t *testing.T) {
		events := log.Events(&Filter{MinLevel: LevelRestricted})
		if len(events) != 2 {
			t.Errorf("got %d restricted+ entries, want 2", len(events))
		}
		events = log.Events(&Filter{MinLevel: LevelClassified})
		if len(events) != 1 {
			t.Errorf("got %d classified entries, want 1", len(events))
		}
	})

	t.Run("by sequence", func(t *testing.T) {
		events := log.Events(&Filter{SinceSequence: 3})
		if len(events) != 2 {
			t.Errorf("got %d entries after sequence 3, want 2", len(events))
		}
	})

	t.Run("with limit", func(t *testing.T) {
		events := log.Events(&Filter{Limit: 2})
		if len(events) != 2 {
			t.Fatalf("got %d entries, want 2", len(events))
		}
		// Limit keeps the most recent matches
		if events[1].EntityID != "a-3" {
			t.Errorf("limited query should end at the newest entry, got %s", events[1].EntityID)
		}
	})

	t.Run("nil filter returns everything", func(t *testing.T) {
		events := log.Events(nil)
		if len(events) != 5 {
			t.Errorf("got %d entries, want 5", len(events))
		}
	})
}

// TestAuditLog_Events_TimeRange tests time-window filtering
func TestAuditLog_Events_TimeRange(t *testing.T) {
	log := NewAuditLog(10)

	early := time.Now().Add(-time.Hour)
	late := time.Now().Add(time.Hour)

	log.Append(&Entry{Category: CategoryAction, EntityKind: EntityAction, Status: StatusCompleted})

	events := log.Events(&Filter{StartTime: &early, EndTime: &late})
	if len(events) != 1 {
		t.Errorf("in-window query got %d entries, want 1", len(events))
	}

	events = log.Events(&Filter{StartTime: &late})
	if len(events) != 0 {
		t.Errorf("future-window query got %d entries, want 0", len(events))
	}
}

// TestAuditLog_Recent tests newest-first retrieval
func TestAuditLog_Recent(t *testing.T) {
	log := NewAuditLog(10)

	for i := 0; i < 5; i++ {
		log.Append(NewEntry(CategoryAction, EntityAction, fmt.Sprintf("a-%d", i), StatusCompleted))
	}

	recent := log.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(recent))
	}
	if recent[0].EntityID != "a-4" {
		t.Errorf("Recent(3)[0] = %s, want a-4", recent[0].EntityID)
	}
	if recent[2].EntityID != "a-2" {
		t.Errorf("Recent(3)[2] = %s, want a-2", recent[2].EntityID)
	}

	// Asking for more than held returns what exists
	all := log.Recent(100)
	if len(all) != 5 {
		t.Errorf("Recent(100) returned %d entries, want 5", len(all))
	}
}

// TestAuditLog_Clear verifies clearing keeps the sequence counter
func TestAuditLog_Clear(t *testing.T) {
	log := NewAuditLog(10)

	log.Append(NewEntry(CategoryCreation, EntityNode, "n-1", StatusCompleted))
	log.Append(NewEntry(CategoryCreation, EntityNode, "n-2", StatusCompleted))
	log.Clear()

	if log.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", log.Count())
	}

	entry := NewEntry(CategoryCreation, EntityNode, "n-3", StatusCompleted)
	log.Append(entry)
	if entry.Sequence != 3 {
		t.Errorf("sequence after Clear = %d, want 3", entry.Sequence)
	}
}

func TestSecurityLevelOrdering(t *testing.T) {
	if !(LevelPublic < LevelRestricted && LevelRestricted < LevelClassified) {
		t.Error("security levels must order public < restricted < classified")
	}
}

func TestParseSecurityLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected SecurityLevel
	}{
		{"public", LevelPublic},
		{"restricted", LevelRestricted},
		{"classified", LevelClassified},
		{"bogus", LevelPublic},
		{"", LevelPublic},
	}

	for _, tt := range tests {
		if got := ParseSecurityLevel(tt.input); got != tt.expected {
			t.Errorf("ParseSecurityLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestEntryString(t *testing.T) {
	entry := NewRejection(CategoryValidation, EntityAction, "a-1", "unknown node")
	entry.Timestamp = time.Now()
	entry.Sequence = 7

	s := entry.String()
	if s == "" {
		t.Fatal("String() returned empty")
	}
	for _, want := range []string{"#7", "validation", "a-1", "rejected"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
