package toolrouter

import (
	"context"
	"testing"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/bobmcallan/lancet/internal/schema"
	"github.com/bobmcallan/lancet/internal/services/feedback"
	"github.com/bobmcallan/lancet/internal/services/status"
	"github.com/bobmcallan/lancet/internal/testsupport"
)

func newTestRouter(t *testing.T) (*Router, *testsupport.FakeStore, *status.TaskHub) {
	t.Helper()
	store := testsupport.NewFakeStore()
	hub := status.NewTaskHub(common.NewSilentLogger())
	statusSvc := status.NewService(store, hub, common.NewSilentLogger(), common.StatusConfig{MaxWaitSeconds: 1})
	feedbackHandler := feedback.NewHandler(store, common.NewSilentLogger())
	registry, err := schema.NewRegistry()
	if err != nil {
		t.Fatalf("schema.NewRegistry() error = %v", err)
	}
	return New(store, hub, statusSvc, feedbackHandler, registry, common.NewSilentLogger()), store, hub
}

func TestDispatchCreateTaskRejectsMissingQuery(t *testing.T) {
	r, _, _ := newTestRouter(t)
	env := r.Dispatch(context.Background(), "create_task", map[string]any{})
	if ok, _ := env["ok"].(bool); ok {
		t.Fatalf("expected ok=false, got %+v", env)
	}
	if env["error_code"] != "INVALID_PARAMS" {
		t.Fatalf("expected INVALID_PARAMS, got %+v", env)
	}
}

func TestDispatchCreateTaskRejectsLegacyBudgetKey(t *testing.T) {
	r, _, _ := newTestRouter(t)
	args := map[string]any{
		"query": "find out about X",
		"config": map[string]any{
			"budget": map[string]any{"max_pages": float64(10)},
		},
	}
	env := r.Dispatch(context.Background(), "create_task", args)
	if ok, _ := env["ok"].(bool); ok {
		t.Fatalf("expected legacy budget.max_pages to be rejected, got %+v", env)
	}
}

func TestDispatchCreateTaskThenQueueTargets(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	createEnv := r.Dispatch(ctx, "create_task", map[string]any{"query": "does X cause Y"})
	if ok, _ := createEnv["ok"].(bool); !ok {
		t.Fatalf("create_task failed: %+v", createEnv)
	}
	taskID, _ := createEnv["task_id"].(string)
	if taskID == "" {
		t.Fatalf("expected non-empty task_id, got %+v", createEnv)
	}

	queueEnv := r.Dispatch(ctx, "queue_targets", map[string]any{
		"task_id": taskID,
		"targets": []any{
			map[string]any{"kind": "query", "query": "does X cause Y in humans"},
		},
	})
	if ok, _ := queueEnv["ok"].(bool); !ok {
		t.Fatalf("queue_targets failed: %+v", queueEnv)
	}
	if queueEnv["queued_count"] != 1 {
		t.Fatalf("expected queued_count=1, got %+v", queueEnv)
	}

	// Re-queuing the identical target must dedup to a no-op.
	dupEnv := r.Dispatch(ctx, "queue_targets", map[string]any{
		"task_id": taskID,
		"targets": []any{
			map[string]any{"kind": "query", "query": "does X cause Y in humans"},
		},
	})
	if dupEnv["queued_count"] != 0 || dupEnv["skipped_count"] != 1 {
		t.Fatalf("expected dedup to skip the duplicate target, got %+v", dupEnv)
	}

	jobs, err := store.Jobs().ListByTask(ctx, taskID, 0)
	if err != nil {
		t.Fatalf("ListByTask() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one enqueued job after dedup, got %d", len(jobs))
	}
}

func TestDispatchQueueTargetsUnknownTask(t *testing.T) {
	r, _, _ := newTestRouter(t)
	env := r.Dispatch(context.Background(), "queue_targets", map[string]any{
		"task_id": "task_doesnotexist",
		"targets": []any{map[string]any{"kind": "query", "query": "q"}},
	})
	if env["error_code"] != "TASK_NOT_FOUND" {
		t.Fatalf("expected TASK_NOT_FOUND, got %+v", env)
	}
}

func TestDispatchStopTaskIsIdempotentOnTerminalTask(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	createEnv := r.Dispatch(ctx, "create_task", map[string]any{"query": "q"})
	taskID, _ := createEnv["task_id"].(string)

	first := r.Dispatch(ctx, "stop_task", map[string]any{"task_id": taskID, "mode": "immediate"})
	if ok, _ := first["ok"].(bool); !ok {
		t.Fatalf("first stop_task failed: %+v", first)
	}

	task, err := store.Tasks().Get(ctx, taskID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !task.IsTerminal() {
		t.Fatalf("expected task to be terminal after stop_task, got status=%q", task.Status)
	}

	second := r.Dispatch(ctx, "stop_task", map[string]any{"task_id": taskID, "mode": "immediate"})
	if ok, _ := second["ok"].(bool); !ok {
		t.Fatalf("second stop_task call should be idempotent, got %+v", second)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r, _, _ := newTestRouter(t)
	env := r.Dispatch(context.Background(), "not_a_real_tool", map[string]any{})
	if env["error_code"] != "INVALID_PARAMS" {
		t.Fatalf("expected INVALID_PARAMS for unknown tool, got %+v", env)
	}
}

func TestDispatchFeedbackDomainBlockAndUnblock(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	blockEnv := r.Dispatch(ctx, "feedback", map[string]any{
		"action": "domain_block",
		"domain": "spamreview.example",
		"reason": "low quality",
	})
	if ok, _ := blockEnv["ok"].(bool); !ok {
		t.Fatalf("domain_block failed: %+v", blockEnv)
	}

	unblockEnv := r.Dispatch(ctx, "feedback", map[string]any{
		"action": "domain_unblock",
		"domain": "spamreview.example",
	})
	if ok, _ := unblockEnv["ok"].(bool); !ok {
		t.Fatalf("domain_unblock failed: %+v", unblockEnv)
	}
}

func TestDispatchFeedbackRejectsForbiddenPattern(t *testing.T) {
	r, _, _ := newTestRouter(t)
	env := r.Dispatch(context.Background(), "feedback", map[string]any{
		"action": "domain_block",
		"domain": "*.com",
	})
	if ok, _ := env["ok"].(bool); ok {
		t.Fatalf("expected wildcard domain pattern to be rejected, got %+v", env)
	}
}

// TestDispatchQueueTargetsMalformedEntryDoesNotPanic exercises a target
// entry that isn't a map: the handler's type assertion degrades it to a
// zero-value descriptor rather than panicking, and mcptargets.Validate
// rejects the resulting empty kind as INVALID_PARAMS through the normal
// *mcperr.Error path rather than reaching Dispatch's recover().
func TestDispatchQueueTargetsMalformedEntryDoesNotPanic(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	task := &models.Task{ID: "task_malformed", Goal: "q", Status: models.TaskStatusCreated}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	env := r.Dispatch(ctx, "queue_targets", map[string]any{
		"task_id": task.ID,
		"targets": []any{"not-a-map"},
	})
	if ok, _ := env["ok"].(bool); ok {
		t.Fatalf("expected a malformed target entry to be rejected as invalid, got %+v", env)
	}
}
