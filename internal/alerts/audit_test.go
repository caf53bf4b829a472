package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bl8ckfz/market-alerts-backend/internal/market"
)

func auditEntries(n int, offset int) []AuditEntry {
	out := make([]AuditEntry, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = AuditEntry{
			Timestamp: base.Add(time.Duration(offset+i) * time.Second),
			AlertID:   fmt.Sprintf("alert-%d", offset+i),
			Symbol:    "BTC",
			Type:      TypePrice,
			Condition: CondAbove,
		}
	}
	return out
}

func TestAuditRecentOrder(t *testing.T) {
	log := NewMemoryAuditLog()
	ctx := context.Background()

	if err := log.Append(ctx, auditEntries(10, 0)); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}

	// Insertion order, newest last.
	for i, want := range []string{"alert-7", "alert-8", "alert-9"} {
		if recent[i].AlertID != want {
			t.Errorf("entry %d: %s, want %s", i, recent[i].AlertID, want)
		}
	}
}

func TestAuditRecentBounds(t *testing.T) {
	log := NewMemoryAuditLog()
	ctx := context.Background()

	if entries, _ := log.Recent(ctx, 5); len(entries) != 0 {
		t.Error("empty log must return no entries")
	}

	log.Append(ctx, auditEntries(2, 0))

	if entries, _ := log.Recent(ctx, 50); len(entries) != 2 {
		t.Error("asking for more than stored must return all entries")
	}
	if entries, _ := log.Recent(ctx, 0); len(entries) != 0 {
		t.Error("n <= 0 must return no entries")
	}
}

func TestAuditCapacityEviction(t *testing.T) {
	log := NewMemoryAuditLog()
	ctx := context.Background()

	// Append in batches well past the cap.
	for offset := 0; offset < 1500; offset += 100 {
		if err := log.Append(ctx, auditEntries(100, offset)); err != nil {
			t.Fatalf("append at %d: %v", offset, err)
		}
	}

	if log.Size() != auditCapacity {
		t.Fatalf("size = %d, want %d", log.Size(), auditCapacity)
	}

	all, _ := log.Recent(ctx, auditCapacity)
	if all[0].AlertID != "alert-500" {
		t.Errorf("oldest surviving entry = %s, want alert-500 (FIFO eviction)", all[0].AlertID)
	}
	if all[len(all)-1].AlertID != "alert-1499" {
		t.Errorf("newest entry = %s, want alert-1499", all[len(all)-1].AlertID)
	}
}

func TestAuditIndependentOfAlertDeletion(t *testing.T) {
	engine, store, audit := testEngine(t, nil)
	ctx := context.Background()

	a := mustCreate(t, store, TypePrice, "BTC", CondAbove, "100")

	if _, err := engine.RunCycle(ctx, snapshotWith("BTC", market.Quote{Price: 105})); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	if _, err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries, _ := audit.Recent(ctx, 10)
	if len(entries) != 1 || entries[0].AlertID != a.ID {
		t.Error("audit entries must survive alert deletion")
	}
}
