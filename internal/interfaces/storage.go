// Package interfaces defines the storage and collaborator contracts the
// dispatcher, status service, and tool router depend on, so they can be
// exercised against a fake in unit tests without a live SurrealDB instance.
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/lancet/internal/models"
)

// Store aggregates every durable sub-store the research core needs.
type Store interface {
	Tasks() TaskStore
	Jobs() JobQueueStore
	Exploration() ExplorationStore
	Materials() MaterialStore
	Calibration() CalibrationStore
	Intervention() InterventionStore
	Feedback() FeedbackStore
	ResourceIndex() ResourceIndexStore

	// WriteRaw atomically persists a raw blob (e.g. a fetched PDF) outside
	// the relational tables, keyed by subdir/key.
	WriteRaw(subdir, key string, data []byte) error

	Close() error
}

// TaskStore manages Task rows and their state machine transitions.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	// CompareAndTransition atomically moves a task from one status to another,
	// returning false (no error) if the task was not in fromStatus.
	CompareAndTransition(ctx context.Context, id, fromStatus, toStatus string) (bool, error)
	IncrementPagesFetched(ctx context.Context, id string, delta int) error
	TouchActivity(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]*models.Task, error)
}

// JobQueueStore manages the durable, priority-ordered job queue. FetchNext is
// atomic: select the best pending candidate, then claim it with a
// conditional UPDATE so two dispatcher workers never run the same job.
type JobQueueStore interface {
	Enqueue(ctx context.Context, job *models.Job) error
	// EnqueueDeduped enqueues unless a job with the same DedupKey is already
	// queued or running for the task; returns false if skipped as a duplicate.
	EnqueueDeduped(ctx context.Context, job *models.Job) (bool, error)
	FetchNext(ctx context.Context, slots []string) (*models.Job, error)
	Complete(ctx context.Context, id string, jobErr error, durationMS int64) error
	Cancel(ctx context.Context, id string) error
	CancelByTask(ctx context.Context, taskID string) (int, error)
	// CancelPendingByTask cancels only queued (not yet running) jobs for a
	// task, backing stop_task's graceful mode.
	CancelPendingByTask(ctx context.Context, taskID string) (int, error)
	CountPendingByTask(ctx context.Context, taskID string) (int, error)
	ListByTask(ctx context.Context, taskID string, limit int) ([]*models.Job, error)
	ResetRunningJobs(ctx context.Context) (int, error)
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int, error)
}

// ExplorationStore tracks the live progress counters for a task.
type ExplorationStore interface {
	Get(ctx context.Context, taskID string) (*models.ExplorationState, error)
	Upsert(ctx context.Context, state *models.ExplorationState) error
	IncrementCounters(ctx context.Context, taskID string, deltas map[string]int) error
	// UpsertSearch creates or replaces a single search_id's sub-state entry,
	// leaving every other search's entry untouched.
	UpsertSearch(ctx context.Context, taskID string, search *models.SearchSubState) error
}

// MaterialStore persists pages, fragments, claims, and citation edges.
type MaterialStore interface {
	SavePage(ctx context.Context, p *models.Page) error
	SaveFragment(ctx context.Context, f *models.Fragment) error
	SaveClaim(ctx context.Context, c *models.Claim) error
	SaveEdge(ctx context.Context, e *models.Edge) error
	GetFragment(ctx context.Context, id string) (*models.Fragment, error)
	ListFragments(ctx context.Context, taskID string) ([]*models.Fragment, error)
	RejectClaim(ctx context.Context, claimID, reason string) error
	RestoreClaim(ctx context.Context, claimID string) error
	ListPages(ctx context.Context, taskID string) ([]*models.Page, error)
	ListClaims(ctx context.Context, taskID string, includeRejected bool) ([]*models.Claim, error)
	ListEdges(ctx context.Context, taskID string) ([]*models.Edge, error)
}

// CalibrationStore manages calibration version snapshots and the active pointer.
type CalibrationStore interface {
	Active(ctx context.Context) (*models.CalibrationVersion, error)
	Get(ctx context.Context, tag string) (*models.CalibrationVersion, error)
	List(ctx context.Context) ([]*models.CalibrationVersion, error)
	Save(ctx context.Context, v *models.CalibrationVersion) error
	SetActive(ctx context.Context, tag string) error
}

// InterventionStore manages the human-in-the-loop queue surfaced by
// get_auth_queue and resolved via resolve_auth.
type InterventionStore interface {
	Create(ctx context.Context, item *models.InterventionQueueItem) error
	ListPending(ctx context.Context, taskID string) ([]*models.InterventionQueueItem, error)
	Resolve(ctx context.Context, id, resolution string) error
	Get(ctx context.Context, id string) (*models.InterventionQueueItem, error)
}

// FeedbackStore manages per-domain fetch-policy overrides and the
// edge-correction ground-truth log, backing the FeedbackHandler.
type FeedbackStore interface {
	BlockDomain(ctx context.Context, domain, reason string) error
	UnblockDomain(ctx context.Context, domain string) error
	ClearOverride(ctx context.Context, domain string) error
	IsBlocked(ctx context.Context, domain string) (bool, error)
	ListRules(ctx context.Context) ([]*models.DomainRule, error)
	LogEdgeCorrection(ctx context.Context, taskID, edgeID, correction string) error
}

// ResourceIndexStore deduplicates fetched content by normalized URL/DOI key.
type ResourceIndexStore interface {
	Lookup(ctx context.Context, key string) (*models.ResourceIndexEntry, error)
	Upsert(ctx context.Context, entry *models.ResourceIndexEntry) error
}
