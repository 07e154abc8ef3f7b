package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/lancet/internal/models"
)

func TestMaterialStore_SavePageAndListPages(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	page := &models.Page{TaskID: "task_1", URL: "https://example.com/paper", Title: "A Paper", SourceDepth: 1}
	if err := store.SavePage(ctx, page); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if page.ID == "" {
		t.Error("expected page ID to be assigned")
	}
	if page.FetchedAt.IsZero() {
		t.Error("expected fetched_at to be populated")
	}

	pages, err := store.ListPages(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 1 || pages[0].Title != "A Paper" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestMaterialStore_SaveFragmentAndGetFragment(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	page := &models.Page{TaskID: "task_1", URL: "https://example.com/paper"}
	store.SavePage(ctx, page)

	fragment := &models.Fragment{PageID: page.ID, TaskID: "task_1", Text: "caffeine blocks adenosine receptors", Offset: 120}
	if err := store.SaveFragment(ctx, fragment); err != nil {
		t.Fatalf("SaveFragment failed: %v", err)
	}
	if fragment.ID == "" {
		t.Error("expected fragment ID to be assigned")
	}

	got, err := store.GetFragment(ctx, fragment.ID)
	if err != nil {
		t.Fatalf("GetFragment failed: %v", err)
	}
	if got == nil || got.Text != fragment.Text || got.PageID != page.ID {
		t.Errorf("unexpected fragment: %+v", got)
	}
}

func TestMaterialStore_GetFragmentMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	got, err := store.GetFragment(ctx, "does_not_exist")
	if err != nil {
		t.Fatalf("GetFragment failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing fragment, got %+v", got)
	}
}

func TestMaterialStore_SaveClaimAndListClaimsExcludesRejectedByDefault(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	accepted := &models.Claim{TaskID: "task_1", Text: "caffeine improves reaction time", Confidence: 0.9}
	rejected := &models.Claim{TaskID: "task_1", Text: "low confidence claim", Confidence: 0.1, Rejected: true, RejectedReason: "below_calibration_threshold"}
	store.SaveClaim(ctx, accepted)
	store.SaveClaim(ctx, rejected)

	claims, err := store.ListClaims(ctx, "task_1", false)
	if err != nil {
		t.Fatalf("ListClaims failed: %v", err)
	}
	if len(claims) != 1 || claims[0].ID != accepted.ID {
		t.Fatalf("expected only the accepted claim, got %+v", claims)
	}

	all, err := store.ListClaims(ctx, "task_1", true)
	if err != nil {
		t.Fatalf("ListClaims(includeRejected) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 claims when including rejected, got %d", len(all))
	}
}

func TestMaterialStore_ListClaimsAcrossAllTasksWhenTaskIDEmpty(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	store.SaveClaim(ctx, &models.Claim{TaskID: "task_1", Text: "c1", Confidence: 0.9})
	store.SaveClaim(ctx, &models.Claim{TaskID: "task_2", Text: "c2", Confidence: 0.9})

	claims, err := store.ListClaims(ctx, "", false)
	if err != nil {
		t.Fatalf("ListClaims failed: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("expected 2 claims across all tasks, got %d", len(claims))
	}
}

func TestMaterialStore_RejectAndRestoreClaim(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	claim := &models.Claim{TaskID: "task_1", Text: "c1", Confidence: 0.9}
	store.SaveClaim(ctx, claim)

	if err := store.RejectClaim(ctx, claim.ID, "operator_override"); err != nil {
		t.Fatalf("RejectClaim failed: %v", err)
	}
	visible, _ := store.ListClaims(ctx, "task_1", false)
	if len(visible) != 0 {
		t.Errorf("expected claim to be hidden after rejection, got %d", len(visible))
	}

	if err := store.RestoreClaim(ctx, claim.ID); err != nil {
		t.Fatalf("RestoreClaim failed: %v", err)
	}
	visible, _ = store.ListClaims(ctx, "task_1", false)
	if len(visible) != 1 {
		t.Errorf("expected claim to be visible again after restore, got %d", len(visible))
	}
}

func TestMaterialStore_SaveEdgeAndListEdges(t *testing.T) {
	db := testDB(t)
	store := NewMaterialStore(db, testLogger())
	ctx := context.Background()

	source := &models.Page{TaskID: "task_1", URL: "https://example.com/source"}
	cited := &models.Page{TaskID: "task_1", URL: "https://example.com/cited"}
	store.SavePage(ctx, source)
	store.SavePage(ctx, cited)

	edge := &models.Edge{TaskID: "task_1", FromPageID: source.ID, ToPageID: cited.ID, Relationship: "cites"}
	if err := store.SaveEdge(ctx, edge); err != nil {
		t.Fatalf("SaveEdge failed: %v", err)
	}

	edges, err := store.ListEdges(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListEdges failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Relationship != "cites" {
		t.Errorf("unexpected edges: %+v", edges)
	}
}
