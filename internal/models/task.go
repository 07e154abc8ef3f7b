// Package models defines the durable data types shared across the research core.
package models

import (
	"fmt"
	"time"
)

// Task status values. See Transition for the allowed graph.
const (
	TaskStatusCreated   = "created"
	TaskStatusExploring = "exploring"
	TaskStatusPaused    = "paused"
	TaskStatusStopping  = "stopping"
	TaskStatusDone      = "done"
	TaskStatusFailed    = "failed"
)

// taskTransitions enumerates the allowed next-states for each task status.
var taskTransitions = map[string]map[string]bool{
	TaskStatusCreated:   {TaskStatusExploring: true, TaskStatusStopping: true, TaskStatusFailed: true},
	TaskStatusExploring: {TaskStatusPaused: true, TaskStatusStopping: true, TaskStatusDone: true, TaskStatusFailed: true},
	TaskStatusPaused:    {TaskStatusExploring: true, TaskStatusStopping: true},
	TaskStatusStopping:  {TaskStatusDone: true, TaskStatusFailed: true},
	TaskStatusDone:      {},
	TaskStatusFailed:    {},
}

// Task is the root unit of work an agent creates via create_task.
type Task struct {
	ID              string    `json:"id"`
	Goal            string    `json:"goal"`
	Status          string    `json:"status"`
	BudgetPages     int       `json:"budget_pages"`
	PagesFetched    int       `json:"pages_fetched"`
	MaxSeconds      int       `json:"max_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	CalibrationTag  string    `json:"calibration_tag,omitempty"`
	StopReason      string    `json:"stop_reason,omitempty"`
}

// Transition validates a status change against the task state machine and,
// on success, mutates Status and UpdatedAt.
func (t *Task) Transition(next string) error {
	allowed, ok := taskTransitions[t.Status]
	if !ok {
		return fmt.Errorf("task %s has unknown status %q", t.ID, t.Status)
	}
	if !allowed[next] {
		return fmt.Errorf("task %s: illegal transition %s -> %s", t.ID, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	return nil
}

// BudgetExhausted reports whether the task has consumed its page budget.
func (t *Task) BudgetExhausted() bool {
	return t.BudgetPages > 0 && t.PagesFetched >= t.BudgetPages
}

// IsTerminal reports whether the task cannot accept further work.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusFailed
}
