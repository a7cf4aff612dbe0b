package memory

import (
	"context"
	"testing"

	"ruleforge/internal/rule"
)

func TestRuleStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewRuleStore()

	r1 := &rule.Rule{ID: "r1", ProductID: "p1"}
	r2 := &rule.Rule{ID: "r2", ProductID: "p1"}
	r3 := &rule.Rule{ID: "r3", ProductID: "p2"}

	if err := s.UpsertMany(ctx, []*rule.Rule{r1, r2, r3}); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}

	got, err := s.GetByProductID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByProductID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules for p1, got %d", len(got))
	}

	one, err := s.GetByID(ctx, "r3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if one == nil || one.ProductID != "p2" {
		t.Fatalf("expected r3 with ProductID p2, got %+v", one)
	}

	if missing, _ := s.GetByID(ctx, "nope"); missing != nil {
		t.Fatalf("expected nil for missing rule, got %+v", missing)
	}
}

func TestRuleStoreDeleteByProductID(t *testing.T) {
	ctx := context.Background()
	s := NewRuleStore()

	_ = s.UpsertMany(ctx, []*rule.Rule{
		{ID: "r1", ProductID: "p1"},
		{ID: "r2", ProductID: "p1"},
		{ID: "r3", ProductID: "p2"},
	})

	if err := s.DeleteByProductID(ctx, "p1"); err != nil {
		t.Fatalf("DeleteByProductID: %v", err)
	}

	remaining, _ := s.GetByProductID(ctx, "p1")
	if len(remaining) != 0 {
		t.Fatalf("expected 0 rules remaining for p1, got %d", len(remaining))
	}
	other, _ := s.GetByProductID(ctx, "p2")
	if len(other) != 1 {
		t.Fatalf("expected p2 untouched, got %d", len(other))
	}
}

func TestRuleStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewRuleStore()
	_ = s.Upsert(ctx, &rule.Rule{ID: "r1", ProductID: "p1"})

	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rl, _ := s.GetByID(ctx, "r1"); rl != nil {
		t.Fatalf("expected rule to be gone, got %+v", rl)
	}
}
