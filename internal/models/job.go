package models

import "time"

// Job statuses, following the teacher's job_queue convention but with
// priority direction inverted for this domain (lower integer wins).
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job kinds dispatched through the action registry. target_queue covers all
// three target descriptor kinds (query/url/doi); search_queue is accepted as
// a historical alias of target_queue.
const (
	JobKindTargetQueue    = "target_queue"
	JobKindSearchQueue    = "search_queue" // historical alias of target_queue
	JobKindComputeClaims  = "compute_claims"
	JobKindReferenceQueue = "reference_queue"
)

// PriorityForLabel maps the agent-facing priority label to an integer where
// a lower value wins dequeue ordering (high=10 before medium=50 before low=90).
func PriorityForLabel(label string) int {
	switch label {
	case "high":
		return 10
	case "low":
		return 90
	default:
		return 50 // medium, and any unrecognized label
	}
}

// Job is a unit of dispatcher work bound to a task.
type Job struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Kind        string    `json:"kind"`
	DedupKey    string    `json:"dedup_key"`
	InputJSON   string    `json:"input_json"`
	Priority    int       `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
}

// JobEvent is broadcast on the admin job-event feed (interfaces.EventBroadcaster)
// whenever a job's lifecycle advances.
type JobEvent struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id"`
	Job       *Job      `json:"job,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	QueueSize int       `json:"queue_size"`
}
