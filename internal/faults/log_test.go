package faults

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func recordN(l *Log, n int, component string) {
	for i := 0; i < n; i++ {
		l.Record(NewEntry(
			fmt.Errorf("failure %d: connection refused", i),
			Origin{Component: component, Operation: "op"},
			nil,
		))
	}
}

func TestLog_EvictsOldestTenPercentInBulk(t *testing.T) {
	l := NewLog(100)
	recordN(l, 100, "ipc.client")

	if l.Len() != 100 {
		t.Fatalf("expected full log, got %d", l.Len())
	}

	marker := NewEntry(errors.New("marker: connection refused"), Origin{Component: "ipc.client"}, nil)
	l.Record(marker)

	// 10 evicted in bulk, then the marker appended.
	if got := l.Len(); got != 91 {
		t.Fatalf("expected 91 entries after bulk eviction, got %d", got)
	}

	newest := l.Entries(Query{Limit: 1})
	if len(newest) != 1 || newest[0].ID != marker.ID {
		t.Fatalf("expected marker to be newest entry")
	}
}

func TestLog_TinyCapacityEvictsAtLeastOne(t *testing.T) {
	l := NewLog(5)
	recordN(l, 8, "chat.service")
	if got := l.Len(); got > 5 {
		t.Fatalf("log exceeded capacity: %d", got)
	}
}

func TestLog_QueryFilters(t *testing.T) {
	l := NewLog(50)
	l.Record(NewEntry(errors.New("connection refused"), Origin{Component: "ipc.client", Operation: "Send"}, nil))
	l.Record(NewEntry(errors.New("width below minimum"), Origin{Component: "store", Operation: "SetWindowBounds"}, nil))
	l.Record(NewEntry(errors.New("fatal crash"), Origin{Component: "daemon", Operation: "run"}, nil))

	if got := l.Entries(Query{Category: CategoryValidation}); len(got) != 1 {
		t.Fatalf("expected 1 validation entry, got %d", len(got))
	}
	if got := l.Entries(Query{Severity: SeverityCritical}); len(got) != 1 {
		t.Fatalf("expected 1 critical entry, got %d", len(got))
	}
	if got := l.Entries(Query{Component: "ipc.client"}); len(got) != 1 {
		t.Fatalf("expected 1 ipc.client entry, got %d", len(got))
	}
	if got := l.Entries(Query{Limit: 2}); len(got) != 2 {
		t.Fatalf("expected limit to cap results, got %d", len(got))
	}
	if got := l.Entries(Query{Until: time.Now().Add(-time.Hour)}); len(got) != 0 {
		t.Fatalf("expected no entries before an hour ago, got %d", len(got))
	}
}

func TestLog_QueryNewestFirst(t *testing.T) {
	l := NewLog(10)
	first := NewEntry(errors.New("connection refused"), Origin{Component: "ipc.client"}, nil)
	second := NewEntry(errors.New("connection refused"), Origin{Component: "ipc.client"}, nil)
	l.Record(first)
	l.Record(second)

	got := l.Entries(Query{})
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering")
	}
}

func TestLog_Counts(t *testing.T) {
	l := NewLog(50)
	l.Record(NewEntry(errors.New("connection refused"), Origin{Component: "ipc.client"}, nil))
	l.Record(NewEntry(errors.New("connection refused"), Origin{Component: "ipc.client"}, nil))
	l.Record(NewEntry(errors.New("width below minimum"), Origin{Component: "store"}, nil))

	c := l.Counts()
	if c.Total != 3 {
		t.Fatalf("expected total 3, got %d", c.Total)
	}
	if c.ByCategory[CategoryNetwork] != 2 {
		t.Fatalf("expected 2 network, got %d", c.ByCategory[CategoryNetwork])
	}
	if c.ByCategory[CategoryValidation] != 1 {
		t.Fatalf("expected 1 validation, got %d", c.ByCategory[CategoryValidation])
	}
	if c.ByComponent["ipc.client"] != 2 {
		t.Fatalf("expected 2 from ipc.client, got %d", c.ByComponent["ipc.client"])
	}
}
