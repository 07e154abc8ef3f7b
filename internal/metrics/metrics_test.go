package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveActionRecordsDuration(t *testing.T) {
	reg := NewRegistry()
	start := time.Now().Add(-50 * time.Millisecond)
	reg.ObserveAction("target_queue", start)

	count := testutil.CollectAndCount(reg.ActionDuration)
	if count != 1 {
		t.Fatalf("expected one observed duration sample, got %d", count)
	}
}

func TestRecordToolCallCountsByOutcome(t *testing.T) {
	reg := NewRegistry()
	reg.RecordToolCall("create_task", true)
	reg.RecordToolCall("create_task", false)

	if got := testutil.ToFloat64(reg.ToolCalls.WithLabelValues("create_task", "ok")); got != 1 {
		t.Fatalf("expected 1 ok call, got %v", got)
	}
	if got := testutil.ToFloat64(reg.ToolCalls.WithLabelValues("create_task", "error")); got != 1 {
		t.Fatalf("expected 1 error call, got %v", got)
	}
}

func TestRecordJobOutcome(t *testing.T) {
	reg := NewRegistry()
	reg.RecordJobOutcome("target_queue", "success")
	if got := testutil.ToFloat64(reg.JobsCompleted.WithLabelValues("target_queue", "success")); got != 1 {
		t.Fatalf("expected 1 success job, got %v", got)
	}
}
