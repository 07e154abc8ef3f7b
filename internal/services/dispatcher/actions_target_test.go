package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/bobmcallan/lancet/internal/testsupport"
)

// fakeSearchEngine returns a fixed set of hits or an error, never touching a
// real search endpoint.
type fakeSearchEngine struct {
	name string
	hits []SearchHit
	err  error
}

func (e *fakeSearchEngine) Name() string { return e.name }
func (e *fakeSearchEngine) Search(_ context.Context, _ string) ([]SearchHit, error) {
	return e.hits, e.err
}

// fakeFetcher returns fixed content for Fetch/ResolveDOI, never touching the
// live web.
type fakeFetcher struct {
	contentType string
	body        []byte
	fetchErr    error
	resolvedURL string
	resolveErr  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, []byte, error) {
	return f.contentType, f.body, f.fetchErr
}

func (f *fakeFetcher) ResolveDOI(_ context.Context, _ string) (string, error) {
	return f.resolvedURL, f.resolveErr
}

func targetJob(t *testing.T, taskID string, target models.Target) *models.Job {
	t.Helper()
	payload, err := json.Marshal(target)
	if err != nil {
		t.Fatalf("failed to marshal target: %v", err)
	}
	return &models.Job{TaskID: taskID, Kind: models.JobKindTargetQueue, InputJSON: string(payload)}
}

func TestTargetActionRunQueryEnqueuesHitsAsReferenceCandidates(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	engine := &fakeSearchEngine{name: "google", hits: []SearchHit{
		{URL: "https://example.com/a", Title: "A"},
		{URL: "https://example.com/b", Title: "B"},
	}}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), []SearchEngine{engine}, &fakeFetcher{}, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindQuery, Query: "caffeine reaction time"})
	if err := action.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	jobs, err := store.Jobs().ListByTask(ctx, "task_1", 0)
	if err != nil {
		t.Fatalf("ListByTask failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 reference_queue jobs from 2 search hits, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.Kind != models.JobKindReferenceQueue {
			t.Errorf("expected job kind %q, got %q", models.JobKindReferenceQueue, j.Kind)
		}
	}

	state, err := store.Exploration().Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.TargetsSucceeded != 1 {
		t.Errorf("expected targets_succeeded counter of 1, got %d", state.TargetsSucceeded)
	}
}

func TestTargetActionRunQueryFailsWhenAllEnginesFail(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	engine := &fakeSearchEngine{name: "google", err: fmt.Errorf("engine unreachable")}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), []SearchEngine{engine}, &fakeFetcher{}, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindQuery, Query: "q"})
	if err := action.Run(ctx, job); err == nil {
		t.Fatal("expected an error when every configured engine fails")
	}

	state, err := store.Exploration().Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.TargetsFailed != 1 {
		t.Errorf("expected targets_failed counter of 1, got %d", state.TargetsFailed)
	}
}

func TestTargetActionRunQueryErrorsWithNoEnginesConfigured(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}

	action := NewTargetAction(store, notifier, common.NewSilentLogger(), nil, &fakeFetcher{}, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindQuery, Query: "q"})
	if err := action.Run(context.Background(), job); err == nil {
		t.Fatal("expected an error when no search engines are configured")
	}
}

func TestTargetActionRunFetchSavesPageFragmentAndQueuesClaims(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	fetcher := &fakeFetcher{contentType: "text/plain", body: []byte("caffeine improves reaction time in most adults")}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), nil, fetcher, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindURL, URL: "https://example.com/paper"})
	if err := action.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	pages, err := store.Materials().ListPages(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 saved page, got %d", len(pages))
	}

	jobs, err := store.Jobs().ListByTask(ctx, "task_1", 0)
	if err != nil {
		t.Fatalf("ListByTask failed: %v", err)
	}
	foundClaimsJob := false
	for _, j := range jobs {
		if j.Kind == models.JobKindComputeClaims {
			foundClaimsJob = true
		}
	}
	if !foundClaimsJob {
		t.Error("expected a compute_claims job to be enqueued after a successful fetch")
	}

	state, err := store.Exploration().Get(ctx, "task_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.PagesFetched != 1 || state.FragmentsFound != 1 {
		t.Errorf("expected pages_fetched/fragments_found of 1, got %+v", state)
	}
}

func TestTargetActionRunFetchRejectsBlockedDomain(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	if err := store.Feedback().BlockDomain(ctx, "blocked.example.com", "test fixture"); err != nil {
		t.Fatalf("failed to seed blocked domain: %v", err)
	}

	fetcher := &fakeFetcher{contentType: "text/plain", body: []byte("should never be fetched")}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), nil, fetcher, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindURL, URL: "https://blocked.example.com/paper"})
	if err := action.Run(ctx, job); err == nil {
		t.Fatal("expected an error for a blocked domain")
	}

	pages, err := store.Materials().ListPages(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no page to be saved for a blocked domain, got %d", len(pages))
	}
}

func TestTargetActionRunFetchSkipsAlreadyIndexedURL(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	fetcher := &fakeFetcher{contentType: "text/plain", body: []byte("first fetch")}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), nil, fetcher, time.Second)

	target := models.Target{Kind: models.TargetKindURL, URL: "https://example.com/dup"}
	if err := action.Run(ctx, targetJob(t, "task_1", target)); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	fetcher.fetchErr = fmt.Errorf("should not be called again")
	if err := action.Run(ctx, targetJob(t, "task_1", target)); err != nil {
		t.Fatalf("second Run on an already-indexed URL should succeed without refetching: %v", err)
	}

	pages, err := store.Materials().ListPages(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("expected only 1 page despite 2 runs against the same URL, got %d", len(pages))
	}
}

func TestTargetActionResolvesDOIBeforeFetching(t *testing.T) {
	store := testsupport.NewFakeStore()
	notifier := &countingNotifier{}
	ctx := context.Background()

	fetcher := &fakeFetcher{
		contentType: "text/plain",
		body:        []byte("resolved content"),
		resolvedURL: "https://journal.example.com/article/123",
	}
	action := NewTargetAction(store, notifier, common.NewSilentLogger(), nil, fetcher, time.Second)

	job := targetJob(t, "task_1", models.Target{Kind: models.TargetKindDOI, DOI: "10.1234/abcd"})
	if err := action.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	pages, err := store.Materials().ListPages(ctx, "task_1")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 1 || pages[0].URL != "https://journal.example.com/article/123" {
		t.Fatalf("expected page saved under resolved DOI landing URL, got %+v", pages)
	}
}
