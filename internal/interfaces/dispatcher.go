package interfaces

import (
	"context"

	"github.com/bobmcallan/lancet/internal/models"
)

// Action executes one job kind. Implementations must poll ctx.Done() between
// I/O steps so cancellation is cooperative rather than forced.
type Action interface {
	Run(ctx context.Context, job *models.Job) error
}

// Notifier wakes any long-poll waiters on a task after an observable state
// change has committed to the store.
type Notifier interface {
	Notify(taskID string)
}

// ClaimExtractor generates model text from a prompt, backing compute_claims'
// factual-assertion extraction step.
type ClaimExtractor interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// EventBroadcaster fans a job lifecycle event out to the operator-facing
// admin feed. Unlike Notifier (per-task, wakes a blocked get_status caller),
// a broadcaster is global: every connected admin client sees every job
// across every task.
type EventBroadcaster interface {
	Broadcast(event models.JobEvent)
}
