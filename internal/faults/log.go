package faults

import (
	"sync"
	"time"
)

// DefaultLogCapacity bounds the in-memory fault log.
const DefaultLogCapacity = 500

// Log is a fixed-capacity ring of recorded failures. When full, the oldest
// 10% are evicted in one bulk drop so a failure storm does not thrash the
// buffer one entry at a time.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []*Entry
}

// NewLog creates a log holding at most capacity entries. Non-positive
// capacities fall back to the default.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

// Record appends an entry, evicting the oldest block when at capacity.
func (l *Log) Record(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.capacity {
		drop := l.capacity / 10
		if drop < 1 {
			drop = 1
		}
		l.entries = append(l.entries[:0], l.entries[drop:]...)
	}
	l.entries = append(l.entries, e)
}

// Query filters the log. Zero values match everything; Limit caps the number
// of results, newest first.
type Query struct {
	Category  Category
	Severity  Severity
	Component string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Entries returns matching entries, newest first.
func (l *Log) Entries(q Query) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if q.Severity != "" && e.Severity != q.Severity {
			continue
		}
		if q.Component != "" && e.Origin.Component != q.Component {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && e.Timestamp.After(q.Until) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// Counts aggregates the log by category, severity, and origin component.
type Counts struct {
	Total       int              `json:"total"`
	ByCategory  map[Category]int `json:"by_category"`
	BySeverity  map[Severity]int `json:"by_severity"`
	ByComponent map[string]int   `json:"by_component"`
}

// Counts returns aggregate counts over the current buffer.
func (l *Log) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := Counts{
		Total:       len(l.entries),
		ByCategory:  make(map[Category]int),
		BySeverity:  make(map[Severity]int),
		ByComponent: make(map[string]int),
	}
	for _, e := range l.entries {
		c.ByCategory[e.Category]++
		c.BySeverity[e.Severity]++
		c.ByComponent[e.Origin.Component]++
	}
	return c
}

// Len reports the number of buffered entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
