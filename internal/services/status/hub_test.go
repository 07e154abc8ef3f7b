package status

import (
	"testing"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
)

func TestTaskHubNotifyWakesWaiter(t *testing.T) {
	h := NewTaskHub(common.NewSilentLogger())

	ch := h.Wait("task_1")
	if h.WaiterCount("task_1") != 1 {
		t.Fatalf("expected 1 waiter, got %d", h.WaiterCount("task_1"))
	}

	h.Notify("task_1")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Notify")
	}

	if h.WaiterCount("task_1") != 0 {
		t.Errorf("expected waiter list to be cleared after Notify, got %d", h.WaiterCount("task_1"))
	}
}

func TestTaskHubNotifyWakesAllWaitersOnTask(t *testing.T) {
	h := NewTaskHub(common.NewSilentLogger())

	ch1 := h.Wait("task_1")
	ch2 := h.Wait("task_1")

	h.Notify("task_1")

	for _, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("a waiter was not woken by Notify")
		}
	}
}

func TestTaskHubNotifyOnUnrelatedTaskDoesNotWake(t *testing.T) {
	h := NewTaskHub(common.NewSilentLogger())

	ch := h.Wait("task_1")
	h.Notify("task_2")

	select {
	case <-ch:
		t.Fatal("waiter on task_1 was woken by a notify for task_2")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTaskHubCancelWaitRemovesWaiter(t *testing.T) {
	h := NewTaskHub(common.NewSilentLogger())

	ch := h.Wait("task_1")
	h.CancelWait("task_1", ch)

	if h.WaiterCount("task_1") != 0 {
		t.Errorf("expected waiter to be removed, got count %d", h.WaiterCount("task_1"))
	}
}

func TestTaskHubCancelWaitLeavesOtherWaitersIntact(t *testing.T) {
	h := NewTaskHub(common.NewSilentLogger())

	ch1 := h.Wait("task_1")
	ch2 := h.Wait("task_1")

	h.CancelWait("task_1", ch1)

	if h.WaiterCount("task_1") != 1 {
		t.Fatalf("expected 1 remaining waiter, got %d", h.WaiterCount("task_1"))
	}

	h.Notify("task_1")
	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Fatal("remaining waiter was not woken")
	}
}
