// Package status implements the long-poll status service: TaskHub wakes any
// get_status caller blocked on a task as soon as the dispatcher commits an
// observable state change, so the agent never has to busy-poll.
package status

import (
	"sync"

	"github.com/bobmcallan/lancet/internal/common"
)

// TaskHub fans out a wake signal to every goroutine waiting on a task's
// status, adapted from the teacher's WebSocket client registry but using
// closed-channel wakers instead of network connections — there is no
// transport here, only in-process coordination between the dispatcher and
// blocked get_status callers.
type TaskHub struct {
	mu      sync.Mutex
	waiters map[string][]chan struct{}
	logger  *common.Logger
}

// NewTaskHub creates a new TaskHub.
func NewTaskHub(logger *common.Logger) *TaskHub {
	return &TaskHub{
		waiters: make(map[string][]chan struct{}),
		logger:  logger,
	}
}

// Wait registers a new waiter channel for taskID and returns it. The caller
// selects on the returned channel (which closes exactly once) alongside its
// own deadline timer.
func (h *TaskHub) Wait(taskID string) <-chan struct{} {
	ch := make(chan struct{})
	h.mu.Lock()
	h.waiters[taskID] = append(h.waiters[taskID], ch)
	h.mu.Unlock()
	return ch
}

// CancelWait removes a waiter channel that timed out without being woken,
// so the waiters slice does not grow unboundedly under sustained long-polling.
func (h *TaskHub) CancelWait(taskID string, ch <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.waiters[taskID]
	for i, c := range list {
		if c == ch {
			h.waiters[taskID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.waiters[taskID]) == 0 {
		delete(h.waiters, taskID)
	}
}

// Notify wakes every waiter currently registered on taskID. Implements
// interfaces.Notifier so the dispatcher can call it directly after each
// job commit without depending on the status package's concrete type.
func (h *TaskHub) Notify(taskID string) {
	h.mu.Lock()
	list := h.waiters[taskID]
	delete(h.waiters, taskID)
	h.mu.Unlock()

	for _, ch := range list {
		close(ch)
	}
}

// WaiterCount reports how many goroutines are currently blocked on taskID,
// for diagnostics and tests.
func (h *TaskHub) WaiterCount(taskID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters[taskID])
}
