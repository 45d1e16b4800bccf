package store

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemorySaveGetList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.SaveSolve(ctx, SolveRecord{Status: "solved", Cost: 42, Request: json.RawMessage(`{"numVehicles":1}`)})
	if err != nil {
		t.Fatalf("SaveSolve: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("record not stamped: %+v", first)
	}
	second, err := m.SaveSolve(ctx, SolveRecord{Status: "infeasible"})
	if err != nil {
		t.Fatalf("SaveSolve: %v", err)
	}

	got, err := m.GetSolve(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSolve: %v", err)
	}
	if got.Status != "solved" || got.Cost != 42 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := m.GetSolve(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("GetSolve(missing) = %v, want ErrNotFound", err)
	}

	list, err := m.ListSolves(ctx, 10)
	if err != nil {
		t.Fatalf("ListSolves: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("list not newest-first: %+v", list)
	}
	one, _ := m.ListSolves(ctx, 1)
	if len(one) != 1 {
		t.Fatalf("limit ignored: %d records", len(one))
	}
}
