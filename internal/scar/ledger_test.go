package scar

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// a second pooled connection to :memory: would be a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewSQLiteStore(db)
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return NewLedger(store)
}

// TestLedger_EmptyLedger verifies CheckTrauma returns nil when nothing has
// been recorded.
func TestLedger_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	trauma, err := ledger.CheckTrauma(ctx, "please delete all logs now")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if trauma != nil {
		t.Errorf("expected nil for empty ledger, got %+v", trauma)
	}
}

// TestLedger_RegisterAndVeto is the end-to-end veto scenario: a severe scar
// matches a later request by word overlap and must trigger a veto.
func TestLedger_RegisterAndVeto(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	if err := ledger.Register(ctx, "delete all logs", 0.9, "deleted logs without backup"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	trauma, err := ledger.CheckTrauma(ctx, "please delete all logs now")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if trauma == nil {
		t.Fatal("expected a matching scar")
	}
	if trauma.Severity != 0.9 {
		t.Errorf("expected severity 0.9, got %v", trauma.Severity)
	}
	if !trauma.Vetoes() {
		t.Error("severity 0.9 must be veto-capable")
	}
}

// TestLedger_WordOverlapMatching verifies matching is by shared word,
// case-insensitive, and that disjoint inputs do not match.
func TestLedger_WordOverlapMatching(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	if err := ledger.Register(ctx, "overwrote config", 0.4, "Overwrote PRODUCTION config"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	trauma, err := ledger.CheckTrauma(ctx, "touch the production environment")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if trauma == nil {
		t.Fatal("expected case-insensitive word match on 'production'")
	}
	if trauma.Vetoes() {
		t.Error("severity 0.4 is informational, not a veto")
	}

	trauma, err = ledger.CheckTrauma(ctx, "schedule a meeting tomorrow")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if trauma != nil {
		t.Errorf("expected no match for disjoint input, got %+v", trauma)
	}
}

// TestLedger_InvalidSeverity verifies out-of-range severities are rejected.
func TestLedger_InvalidSeverity(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	if err := ledger.Register(ctx, "x", 1.5, "bad"); err != ErrInvalidSeverity {
		t.Errorf("expected ErrInvalidSeverity for 1.5, got %v", err)
	}
	if err := ledger.Register(ctx, "x", -0.1, "bad"); err != ErrInvalidSeverity {
		t.Errorf("expected ErrInvalidSeverity for -0.1, got %v", err)
	}
}

// TestLedger_CountMatching verifies the category scar count used by the
// decision engine.
func TestLedger_CountMatching(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	lessons := []string{
		"crypto trade wiped the account",
		"second crypto loss in a month",
		"the vendor contract lapsed",
	}
	for _, lesson := range lessons {
		if err := ledger.Register(ctx, lesson, 0.5, lesson); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	count, err := ledger.CountMatching(ctx, "Crypto")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 crypto scars, got %d", count)
	}
}
