package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemoryStoreCreateDefaults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, err := store.Create(ctx, CreateRequest{
		Type:      TypePrice,
		Symbol:    "BTC",
		Condition: CondAbove,
		Value:     json.Number("50000"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if a.ID == "" {
		t.Error("id must be assigned")
	}
	if !a.Active || a.Triggered || a.TriggeredAt != nil {
		t.Error("new alert must be active, untriggered, with nil trigger time")
	}
	if a.CreatedAt.IsZero() {
		t.Error("creation time must be stamped")
	}
	if a.Threshold != 50000 {
		t.Errorf("threshold = %v, want 50000", a.Threshold)
	}
}

func TestCreateValidation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{"valid", CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "100"}, false},
		{"unknown_type", CreateRequest{Type: "momentum", Symbol: "BTC", Condition: CondAbove, Value: "100"}, true},
		{"non_numeric_value", CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "high"}, true},
		// A mismatched condition is deliberately accepted; it evaluates
		// to not-fired instead of failing creation.
		{"mismatched_condition", CreateRequest{Type: TypeChange, Symbol: "BTC", Condition: CondCrossesAbove, Value: "5"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.req)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("err = %v, want ValidationError", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestListInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for _, sym := range []string{"BTC", "ETH", "SOL"} {
		a, err := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: sym, Condition: CondAbove, Value: "1"})
		if err != nil {
			t.Fatalf("create %s: %v", sym, err)
		}
		ids = append(ids, a.ID)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, a := range list {
		if a.ID != ids[i] {
			t.Errorf("position %d: id %s, want %s", i, a.ID, ids[i])
		}
	}
}

func TestListActiveFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	keep, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})
	inactive, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "ETH", Condition: CondAbove, Value: "1"})
	triggered, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "SOL", Condition: CondAbove, Value: "1"})

	inactive.Active = false
	if err := store.Update(ctx, inactive); err != nil {
		t.Fatalf("update: %v", err)
	}
	triggered.Triggered = true
	if err := store.Update(ctx, triggered); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("active = %v, want only %s", active, keep.ID)
	}

	// Full list still holds all three.
	all, _ := store.List(ctx)
	if len(all) != 3 {
		t.Errorf("list = %d alerts, want 3", len(all))
	}
}

func TestDeleteMissingLeavesStoreUnchanged(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})

	deleted, err := store.Delete(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Error("deleting a missing id must return false")
	}

	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].ID != a.ID {
		t.Error("store contents changed after a failed delete")
	}

	deleted, err = store.Delete(ctx, a.ID)
	if err != nil || !deleted {
		t.Fatalf("delete existing = (%v, %v), want (true, nil)", deleted, err)
	}
	list, _ = store.List(ctx)
	if len(list) != 0 {
		t.Error("alert not removed")
	}
}

func TestClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 0 {
		t.Errorf("list = %d alerts after clear, want 0", len(list))
	}
}

func TestUpdateBatchAtomicity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})

	mutated := a.Clone()
	mutated.Triggered = true
	ghost := mutated.Clone()
	ghost.ID = "no-such-id"

	if err := store.UpdateBatch(ctx, []*Alert{mutated, ghost}); err == nil {
		t.Fatal("batch with an unknown id must fail")
	}

	// The known alert must not have been partially updated.
	list, _ := store.List(ctx)
	if list[0].Triggered {
		t.Error("partial batch write observed")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, _ := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})
	a.Triggered = true // mutate the returned copy only

	list, _ := store.List(ctx)
	if list[0].Triggered {
		t.Error("mutating a returned alert leaked into the store")
	}
}

func TestIDsAreUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		a, err := store.Create(ctx, CreateRequest{Type: TypePrice, Symbol: "BTC", Condition: CondAbove, Value: "1"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true

		// Deleting must not allow reuse either.
		if i%2 == 0 {
			store.Delete(ctx, a.ID)
		}
	}
}
