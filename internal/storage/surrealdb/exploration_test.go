package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/lancet/internal/models"
)

func TestExplorationStore_GetMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	store := NewExplorationStore(db, testLogger())
	ctx := context.Background()

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil exploration state for an unseen task, got %+v", got)
	}
}

func TestExplorationStore_UpsertAndGet(t *testing.T) {
	db := testDB(t)
	store := NewExplorationStore(db, testLogger())
	ctx := context.Background()

	state := &models.ExplorationState{TaskID: "task_1", TargetsQueued: 3, PagesFetched: 1}
	if err := store.Upsert(ctx, state); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.TargetsQueued != 3 || got.PagesFetched != 1 {
		t.Errorf("unexpected exploration state: %+v", got)
	}
}

func TestExplorationStore_IncrementCountersCreatesRowWhenMissing(t *testing.T) {
	db := testDB(t)
	store := NewExplorationStore(db, testLogger())
	ctx := context.Background()

	if err := store.IncrementCounters(ctx, "task_1", map[string]int{"targets_queued": 1}); err != nil {
		t.Fatalf("IncrementCounters failed: %v", err)
	}

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.TargetsQueued != 1 {
		t.Errorf("expected a newly created row with targets_queued=1, got %+v", got)
	}
}

func TestExplorationStore_IncrementCountersAccumulates(t *testing.T) {
	db := testDB(t)
	store := NewExplorationStore(db, testLogger())
	ctx := context.Background()

	store.IncrementCounters(ctx, "task_1", map[string]int{"pages_fetched": 1, "fragments_found": 1})
	store.IncrementCounters(ctx, "task_1", map[string]int{"pages_fetched": 2})

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PagesFetched != 3 {
		t.Errorf("expected pages_fetched to accumulate to 3, got %d", got.PagesFetched)
	}
	if got.FragmentsFound != 1 {
		t.Errorf("expected fragments_found to remain 1, got %d", got.FragmentsFound)
	}
}

func TestExplorationStore_IncrementCountersIgnoresUnknownField(t *testing.T) {
	db := testDB(t)
	store := NewExplorationStore(db, testLogger())
	ctx := context.Background()

	if err := store.IncrementCounters(ctx, "task_1", map[string]int{"bogus_counter": 5}); err != nil {
		t.Fatalf("IncrementCounters failed: %v", err)
	}

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row to still be created")
	}
	if got.TargetsQueued != 0 || got.PagesFetched != 0 {
		t.Errorf("expected all known counters to remain zero, got %+v", got)
	}
}
