package audit

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return db
}

func TestLogAndTail(t *testing.T) {
	db := tempDB(t)

	entries := []Entry{
		{Op: OpFullSweep, Decision: DecisionScored, Reason: "bootstrap"},
		{Op: OpRecordChanged, TestID: "TEST_AAAAAAAAAAA1", Decision: DecisionScored},
		{Op: OpThresholdsChanged, Decision: DecisionRecategorized, Reason: "exact 0.995 -> 0.999"},
	}
	for _, e := range entries {
		if err := LogDecision(db, e); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := Tail(db, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// Newest first.
	if got[0].Op != OpThresholdsChanged {
		t.Fatalf("expected thresholds_changed first, got %s", got[0].Op)
	}
	if got[1].TestID != "TEST_AAAAAAAAAAA1" {
		t.Fatalf("expected test id preserved, got %q", got[1].TestID)
	}
	if got[2].Reason != "bootstrap" {
		t.Fatalf("expected reason preserved, got %q", got[2].Reason)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestTailLimit(t *testing.T) {
	db := tempDB(t)
	for i := 0; i < 5; i++ {
		e := Entry{Op: OpRecordChanged, Decision: DecisionScored, CreatedAt: time.Now().UTC()}
		if err := LogDecision(db, e); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}
	got, err := Tail(db, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}
