package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/lancet/internal/models"
)

func TestCalibrationStore_SaveAndGet(t *testing.T) {
	db := testDB(t)
	store := NewCalibrationStore(db, testLogger())
	ctx := context.Background()

	v := &models.CalibrationVersion{Tag: "v1", SampleCount: 50, Precision: 0.8, Recall: 0.75, BrierScore: 0.12}
	if err := store.Save(ctx, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if v.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated on save")
	}

	got, err := store.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.SampleCount != 50 || got.Precision != 0.8 {
		t.Errorf("unexpected calibration version: %+v", got)
	}
}

func TestCalibrationStore_GetMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	store := NewCalibrationStore(db, testLogger())
	ctx := context.Background()

	got, err := store.Get(ctx, "does_not_exist")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing version, got %+v", got)
	}
}

func TestCalibrationStore_ActiveReturnsNilWhenNoneActive(t *testing.T) {
	db := testDB(t)
	store := NewCalibrationStore(db, testLogger())
	ctx := context.Background()

	store.Save(ctx, &models.CalibrationVersion{Tag: "v1", Active: false})

	got, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil when no version is active, got %+v", got)
	}
}

func TestCalibrationStore_SetActiveSwitchesPointer(t *testing.T) {
	db := testDB(t)
	store := NewCalibrationStore(db, testLogger())
	ctx := context.Background()

	store.Save(ctx, &models.CalibrationVersion{Tag: "v1", Active: true})
	store.Save(ctx, &models.CalibrationVersion{Tag: "v2", Active: false})

	if err := store.SetActive(ctx, "v2"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active == nil || active.Tag != "v2" {
		t.Fatalf("expected v2 to be active, got %+v", active)
	}

	v1, _ := store.Get(ctx, "v1")
	if v1.Active {
		t.Error("expected v1 to no longer be active")
	}
}

func TestCalibrationStore_ListOrdersByCreatedAtDescending(t *testing.T) {
	db := testDB(t)
	store := NewCalibrationStore(db, testLogger())
	ctx := context.Background()

	store.Save(ctx, &models.CalibrationVersion{Tag: "v1"})
	store.Save(ctx, &models.CalibrationVersion{Tag: "v2"})

	versions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
}
