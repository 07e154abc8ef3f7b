package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/lancet/internal/models"
)

func TestTaskStore_CreateAndGet(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{
		ID:          "task_1",
		Goal:        "does caffeine improve reaction time",
		Status:      models.TaskStatusCreated,
		BudgetPages: 20,
		MaxSeconds:  3600,
	}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() || task.LastActivityAt.IsZero() {
		t.Error("expected timestamps to be populated on create")
	}

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task to be returned")
	}
	if got.Goal != task.Goal || got.Status != models.TaskStatusCreated || got.BudgetPages != 20 {
		t.Errorf("unexpected task fields: %+v", got)
	}
}

func TestTaskStore_GetMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	got, err := store.Get(ctx, "does_not_exist")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing task, got %+v", got)
	}
}

func TestTaskStore_Update(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{ID: "task_1", Goal: "g", Status: models.TaskStatusCreated, BudgetPages: 10}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	task.Status = models.TaskStatusExploring
	task.PagesFetched = 3
	if err := store.Update(ctx, task); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.TaskStatusExploring || got.PagesFetched != 3 {
		t.Errorf("expected updated fields to persist, got %+v", got)
	}
}

func TestTaskStore_CompareAndTransitionSucceedsFromMatchingStatus(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{ID: "task_1", Goal: "g", Status: models.TaskStatusCreated}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.CompareAndTransition(ctx, "task_1", models.TaskStatusCreated, models.TaskStatusExploring)
	if err != nil {
		t.Fatalf("CompareAndTransition failed: %v", err)
	}
	if !ok {
		t.Error("expected transition to succeed when task is in the expected status")
	}

	got, _ := store.Get(ctx, "task_1")
	if got.Status != models.TaskStatusExploring {
		t.Errorf("expected status exploring after transition, got %s", got.Status)
	}
}

func TestTaskStore_CompareAndTransitionFailsOnStaleStatus(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{ID: "task_1", Goal: "g", Status: models.TaskStatusExploring}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.CompareAndTransition(ctx, "task_1", models.TaskStatusCreated, models.TaskStatusExploring)
	if err != nil {
		t.Fatalf("CompareAndTransition failed: %v", err)
	}
	if ok {
		t.Error("expected transition to fail when the task is not in the expected from-status")
	}
}

func TestTaskStore_IncrementPagesFetched(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{ID: "task_1", Goal: "g", Status: models.TaskStatusExploring, PagesFetched: 2}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.IncrementPagesFetched(ctx, "task_1", 3); err != nil {
		t.Fatalf("IncrementPagesFetched failed: %v", err)
	}

	got, _ := store.Get(ctx, "task_1")
	if got.PagesFetched != 5 {
		t.Errorf("expected pages_fetched 5, got %d", got.PagesFetched)
	}
}

func TestTaskStore_TouchActivity(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	task := &models.Task{ID: "task_1", Goal: "g", Status: models.TaskStatusExploring}
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	initial := task.LastActivityAt

	if err := store.TouchActivity(ctx, "task_1"); err != nil {
		t.Fatalf("TouchActivity failed: %v", err)
	}

	got, _ := store.Get(ctx, "task_1")
	if !got.LastActivityAt.After(initial) {
		t.Errorf("expected last_activity_at to advance, got %v (was %v)", got.LastActivityAt, initial)
	}
}

func TestTaskStore_ListOrdersByCreatedAtDescending(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, testLogger())
	ctx := context.Background()

	store.Create(ctx, &models.Task{ID: "task_1", Goal: "first", Status: models.TaskStatusCreated})
	store.Create(ctx, &models.Task{ID: "task_2", Goal: "second", Status: models.TaskStatusCreated})

	tasks, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "task_2" {
		t.Errorf("expected most recently created task first, got %s", tasks[0].ID)
	}
}
