package schema

import "testing"

func TestNewRegistryCompilesAllSchemas(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	want := []string{
		"calibration_metrics", "calibration_rollback", "create_task", "feedback",
		"get_auth_queue", "get_materials", "get_status", "notify_user",
		"queue_reference_candidates", "queue_targets", "resolve_auth", "stop_task",
		"wait_for_user",
	}
	got := r.Tools()
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d: %v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("tool[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestValidateInputCreateTaskRejectsLegacyBudgetKey(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	err = r.ValidateInput("create_task", map[string]any{
		"query":  "x",
		"config": map[string]any{"budget": map[string]any{"max_pages": 10}},
	})
	if err == nil {
		t.Fatal("expected validation error for legacy budget.max_pages key")
	}
}

func TestValidateInputCreateTaskAcceptsValidPayload(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	err = r.ValidateInput("create_task", map[string]any{"query": "caffeine effects"})
	if err != nil {
		t.Fatalf("expected valid payload to pass, got %v", err)
	}
}

func TestValidateInputQueueReferenceCandidatesRejectsBothFilters(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	err = r.ValidateInput("queue_reference_candidates", map[string]any{
		"task_id":     "t1",
		"include_ids": []any{"a"},
		"exclude_ids": []any{"b"},
	})
	if err == nil {
		t.Fatal("expected validation error when both include_ids and exclude_ids are set")
	}
}

func TestValidateInputResolveAuthRequiresConditionalField(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := r.ValidateInput("resolve_auth", map[string]any{"target": "item", "action": "complete"}); err == nil {
		t.Fatal("expected validation error: target=item requires queue_id")
	}
	if err := r.ValidateInput("resolve_auth", map[string]any{"target": "item", "queue_id": "q1", "action": "complete"}); err != nil {
		t.Fatalf("expected valid payload to pass, got %v", err)
	}
}

func TestValidateInputUnknownTool(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := r.ValidateInput("not_a_tool", map[string]any{}); err == nil {
		t.Fatal("expected error for unregistered tool")
	}
}
