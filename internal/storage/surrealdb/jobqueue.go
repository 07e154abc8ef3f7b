package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const jobSelectFields = "job_id as id, task_id, kind, dedup_key, input_json, priority, status, created_at, started_at, completed_at, error, attempts, max_attempts, duration_ms"

// jobDedupLockTable holds one record per in-flight dedup_key, keyed
// deterministically so a second claim attempt for the same key fails at the
// storage engine rather than racing a separate dedup check.
const jobDedupLockTable = "job_dedup_lock"

// JobQueueStore implements interfaces.JobQueueStore using SurrealDB.
type JobQueueStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewJobQueueStore creates a new JobQueueStore.
func NewJobQueueStore(db *surrealdb.DB, logger *common.Logger) *JobQueueStore {
	return &JobQueueStore{db: db, logger: logger}
}

func (s *JobQueueStore) Enqueue(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()[:12]
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}

	sql := `UPSERT $rid SET
		job_id = $job_id, task_id = $task_id, kind = $kind, dedup_key = $dedup_key,
		input_json = $input_json, priority = $priority, status = $status,
		created_at = $created_at, started_at = $started_at, completed_at = $completed_at,
		error = $error, attempts = $attempts, max_attempts = $max_attempts, duration_ms = $duration_ms`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("job_queue", job.ID),
		"job_id":       job.ID,
		"task_id":      job.TaskID,
		"kind":         job.Kind,
		"dedup_key":    job.DedupKey,
		"input_json":   job.InputJSON,
		"priority":     job.Priority,
		"status":       job.Status,
		"created_at":   job.CreatedAt,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
		"error":        job.Error,
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"duration_ms":  job.DurationMS,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// EnqueueDeduped claims dedup_key and enqueues the job in a single query, so
// concurrent callers enqueuing the same target race to one winner instead of
// both observing no in-flight duplicate. The claim is a CREATE on a
// deterministic lock record: SurrealDB rejects a CREATE whose record ID
// already exists, which aborts the whole query - including the job
// UPSERT - before anything is written. The lock is released when the job
// leaves pending/running (see releaseDedupLock), so the same dedup_key can
// be claimed again once the prior job completes or is cancelled.
func (s *JobQueueStore) EnqueueDeduped(ctx context.Context, job *models.Job) (bool, error) {
	if job.DedupKey == "" {
		return true, s.Enqueue(ctx, job)
	}
	if job.ID == "" {
		job.ID = uuid.New().String()[:12]
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}

	sql := `CREATE $lock_rid SET job_id = $job_id, dedup_key = $dedup_key, created_at = $created_at;
		UPSERT $rid SET
			job_id = $job_id, task_id = $task_id, kind = $kind, dedup_key = $dedup_key,
			input_json = $input_json, priority = $priority, status = $status,
			created_at = $created_at, started_at = $started_at, completed_at = $completed_at,
			error = $error, attempts = $attempts, max_attempts = $max_attempts, duration_ms = $duration_ms;`
	vars := map[string]any{
		"lock_rid":     surrealmodels.NewRecordID(jobDedupLockTable, recordSafeKey(job.DedupKey)),
		"rid":          surrealmodels.NewRecordID("job_queue", job.ID),
		"job_id":       job.ID,
		"task_id":      job.TaskID,
		"kind":         job.Kind,
		"dedup_key":    job.DedupKey,
		"input_json":   job.InputJSON,
		"priority":     job.Priority,
		"status":       job.Status,
		"created_at":   job.CreatedAt,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
		"error":        job.Error,
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"duration_ms":  job.DurationMS,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		if isDuplicateRecordErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to enqueue deduped job: %w", err)
	}
	return true, nil
}

// isDuplicateRecordErr reports whether err is SurrealDB's rejection of a
// CREATE against a record ID that already exists, the expected outcome when
// EnqueueDeduped loses the race for a dedup_key.
func isDuplicateRecordErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exist") || strings.Contains(msg, "already contains")
}

// releaseDedupLock frees the dedup claim held by a job once it leaves
// pending/running, so a future target with the same dedup_key can be
// enqueued again. Best-effort: a failed release only delays reuse, it never
// risks a duplicate in-flight job.
func (s *JobQueueStore) releaseDedupLock(ctx context.Context, job *models.Job) {
	if job == nil || job.DedupKey == "" {
		return
	}
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(jobDedupLockTable, recordSafeKey(job.DedupKey))}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		s.logger.Warn().Str("job_id", job.ID).Str("dedup_key", job.DedupKey).Err(err).Msg("failed to release dedup lock")
	}
}

// FetchNext performs the atomic two-step dequeue-and-claim: select the
// lowest-priority-number pending candidate restricted to the given slots,
// then conditionally UPDATE it to running so two workers never claim the
// same job. Lower priority integer wins (high=10 before medium=50 before low=90).
func (s *JobQueueStore) FetchNext(ctx context.Context, slots []string) (*models.Job, error) {
	selectSQL := "SELECT " + jobSelectFields + " FROM job_queue WHERE status = $pending"
	vars := map[string]any{"pending": models.JobStatusPending}
	if len(slots) > 0 {
		selectSQL += " AND kind IN $slots"
		vars["slots"] = slots
	}
	selectSQL += " ORDER BY priority ASC, created_at ASC LIMIT 1"

	candidates, err := surrealdb.Query[[]models.Job](ctx, s.db, selectSQL, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate job: %w", err)
	}
	if candidates == nil || len(*candidates) == 0 || len((*candidates)[0].Result) == 0 {
		return nil, nil
	}

	candidate := (*candidates)[0].Result[0]

	now := time.Now()
	updateSQL := `UPDATE $rid SET status = $running, started_at = $now, attempts = attempts + 1 WHERE status = $pending`
	updateVars := map[string]any{
		"rid":     surrealmodels.NewRecordID("job_queue", candidate.ID),
		"running": models.JobStatusRunning,
		"pending": models.JobStatusPending,
		"now":     now,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, updateSQL, updateVars); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	candidate.Status = models.JobStatusRunning
	candidate.StartedAt = now
	candidate.Attempts++
	return &candidate, nil
}

func (s *JobQueueStore) Complete(ctx context.Context, id string, jobErr error, durationMS int64) error {
	now := time.Now()
	status := models.JobStatusCompleted
	errStr := ""
	if jobErr != nil {
		status = models.JobStatusFailed
		errStr = jobErr.Error()
	}

	sql := "UPDATE $rid SET status = $status, completed_at = $now, error = $error, duration_ms = $dur"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("job_queue", id),
		"status": status,
		"now":    now,
		"error":  errStr,
		"dur":    durationMS,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		s.releaseDedupLock(ctx, &(*results)[0].Result[0])
	}
	return nil
}

func (s *JobQueueStore) Cancel(ctx context.Context, id string) error {
	sql := "UPDATE $rid SET status = $status WHERE status IN [$pending, $running]"
	vars := map[string]any{
		"rid":     surrealmodels.NewRecordID("job_queue", id),
		"status":  models.JobStatusCancelled,
		"pending": models.JobStatusPending,
		"running": models.JobStatusRunning,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		s.releaseDedupLock(ctx, &(*results)[0].Result[0])
	}
	return nil
}

// CancelByTask cancels every pending or running job for a task, used by
// stop_task to make cancellation immediately visible to the dispatcher.
func (s *JobQueueStore) CancelByTask(ctx context.Context, taskID string) (int, error) {
	sql := "UPDATE job_queue SET status = $cancelled WHERE task_id = $task_id AND status IN [$pending, $running] RETURN BEFORE"
	vars := map[string]any{
		"cancelled": models.JobStatusCancelled,
		"task_id":   taskID,
		"pending":   models.JobStatusPending,
		"running":   models.JobStatusRunning,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel jobs by task: %w", err)
	}
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			s.releaseDedupLock(ctx, &(*results)[0].Result[i])
		}
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

// CancelPendingByTask cancels only queued jobs for a task, leaving any
// already-running job to finish naturally, for stop_task's graceful mode.
func (s *JobQueueStore) CancelPendingByTask(ctx context.Context, taskID string) (int, error) {
	sql := "UPDATE job_queue SET status = $cancelled WHERE task_id = $task_id AND status = $pending RETURN BEFORE"
	vars := map[string]any{
		"cancelled": models.JobStatusCancelled,
		"task_id":   taskID,
		"pending":   models.JobStatusPending,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending jobs by task: %w", err)
	}
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			s.releaseDedupLock(ctx, &(*results)[0].Result[i])
		}
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

func (s *JobQueueStore) CountPendingByTask(ctx context.Context, taskID string) (int, error) {
	sql := "SELECT count() AS cnt FROM job_queue WHERE task_id = $task_id AND status IN [$pending, $running] GROUP ALL"
	vars := map[string]any{
		"task_id": taskID,
		"pending": models.JobStatusPending,
		"running": models.JobStatusRunning,
	}
	type countResult struct {
		Cnt int `json:"cnt"`
	}
	results, err := surrealdb.Query[[]countResult](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Cnt, nil
	}
	return 0, nil
}

func (s *JobQueueStore) ListByTask(ctx context.Context, taskID string, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 200
	}
	sql := "SELECT " + jobSelectFields + " FROM job_queue WHERE task_id = $task_id ORDER BY created_at DESC LIMIT $limit"
	vars := map[string]any{"task_id": taskID, "limit": limit}
	return s.queryJobs(ctx, sql, vars)
}

// ResetRunningJobs resets jobs stuck in "running" back to "pending". Called
// once at startup to recover jobs that were in-flight when the process
// previously crashed, mid-claim.
func (s *JobQueueStore) ResetRunningJobs(ctx context.Context) (int, error) {
	sql := `UPDATE job_queue SET status = $pending, started_at = NONE WHERE status = $running RETURN BEFORE`
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, map[string]interface{}{
		"pending": models.JobStatusPending,
		"running": models.JobStatusRunning,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset running jobs: %w", err)
	}
	if results != nil && len(*results) > 0 {
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

func (s *JobQueueStore) PurgeCompleted(ctx context.Context, olderThan time.Time) (int, error) {
	sql := "DELETE FROM job_queue WHERE status IN [$completed, $failed, $cancelled] AND completed_at < $cutoff RETURN BEFORE"
	vars := map[string]any{
		"completed": models.JobStatusCompleted,
		"failed":    models.JobStatusFailed,
		"cancelled": models.JobStatusCancelled,
		"cutoff":    olderThan,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed jobs: %w", err)
	}
	if results != nil && len(*results) > 0 {
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

func (s *JobQueueStore) queryJobs(ctx context.Context, sql string, vars map[string]any) ([]*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	var jobs []*models.Job
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			jobs = append(jobs, &(*results)[0].Result[i])
		}
	}
	return jobs, nil
}

var _ interfaces.JobQueueStore = (*JobQueueStore)(nil)
