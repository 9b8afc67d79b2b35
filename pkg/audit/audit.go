// Package audit keeps the bounded append-only trail of engine decisions:
// every validation verdict, executed action, creation, and mapping lands
// here. Storage is a circular buffer, so the log trims itself from the
// oldest end once the cap is reached.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCap is the entry cap used when none is configured.
const DefaultCap = 10000

// AuditLog manages decision entries in a circular buffer. Append never
// fails and never blocks callers on I/O.
type AuditLog struct {
	entries  []*Entry
	cap      int
	index    int
	count    int
	sequence uint64
	mu       sync.RWMutex
}

// NewAuditLog creates an audit log holding at most cap entries. A cap
// below 1 falls back to DefaultCap.
func NewAuditLog(cap int) *AuditLog {
	if cap < 1 {
		cap = DefaultCap
	}
	return &AuditLog{
		entries: make([]*Entry, cap),
		cap:     cap,
	}
}

// Append records an entry, assigning its sequence, ID, and timestamp.
// Once appended an entry must not be mutated.
func (l *AuditLog) Append(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	entry.Sequence = l.sequence
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	l.entries[l.index] = entry
	l.index = (l.index + 1) % l.cap

	if l.count < l.cap {
		l.count++
	}
}

// Events retrieves entries oldest-first with optional filtering.
func (l *AuditLog) Events(filter *Filter) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, 0, l.count)

	for i := 0; i < l.count; i++ {
		idx := (l.index - l.count + i + l.cap) % l.cap
		entry := l.entries[idx]
		if entry == nil {
			continue
		}

		if filter != nil {
			if filter.Category != "" && entry.Category != filter.Category {
				continue
			}
			if filter.EntityKind != "" && entry.EntityKind != filter.EntityKind {
				continue
			}
			if filter.EntityID != "" && entry.EntityID != filter.EntityID {
				continue
			}
			if filter.Status != "" && entry.Status != filter.Status {
				continue
			}
			if entry.Level < filter.MinLevel {
				continue
			}
			if filter.SinceSequence > 0 && entry.Sequence <= filter.SinceSequence {
				continue
			}
			if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
				continue
			}
			if filter.EndTime != nil && entry.Timestamp.After(*filter.EndTime) {
				continue
			}
		}

		result = append(result, entry)
	}

	if filter != nil && filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}

	return result
}

// Recent returns the N most recent entries, newest first.
func (l *AuditLog) Recent(n int) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}

	result := make([]*Entry, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.index - 1 - i + l.cap) % l.cap
		if l.entries[idx] != nil {
			result = append(result, l.entries[idx])
		}
	}

	return result
}

// Count returns the number of entries currently held.
func (l *AuditLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// TotalAppended returns how many entries were ever appended, including
// those the ring has already trimmed.
func (l *AuditLog) TotalAppended() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sequence
}

// Cap returns the configured entry cap.
func (l *AuditLog) Cap() int {
	return l.cap
}

// Clear removes all entries. The sequence counter keeps counting.
func (l *AuditLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]*Entry, l.cap)
	l.index = 0
	l.count = 0
}

// NewEntry creates an entry for a decision about one entity.
func NewEntry(category Category, kind EntityKind, entityID string, status Status) *Entry {
	return &Entry{
		Category:   category,
		EntityKind: kind,
		EntityID:   entityID,
		Status:     status,
		Level:      LevelPublic,
	}
}

// NewRejection creates a rejected-decision entry carrying its reason.
func NewRejection(category Category, kind EntityKind, entityID, reason string) *Entry {
	return &Entry{
		Category:   category,
		EntityKind: kind,
		EntityID:   entityID,
		Status:     StatusRejected,
		Reason:     reason,
		Level:      LevelPublic,
	}
}

// String returns a human-readable representation of an entry
func (e *Entry) String() string {
	return fmt.Sprintf("[%s] #%d %s %s %s %s level=%s t=%d",
		e.Timestamp.Format(time.RFC3339),
		e.Sequence,
		e.Category,
		e.EntityKind,
		e.EntityID,
		e.Status,
		e.Level,
		e.VirtualTime,
	)
}
