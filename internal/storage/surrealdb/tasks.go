package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const taskSelectFields = "task_id as id, goal, status, budget_pages, pages_fetched, max_seconds, created_at, updated_at, last_activity_at, calibration_tag, stop_reason"

// TaskStore implements interfaces.TaskStore using SurrealDB.
type TaskStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *surrealdb.DB, logger *common.Logger) *TaskStore {
	return &TaskStore{db: db, logger: logger}
}

func (s *TaskStore) Create(ctx context.Context, t *models.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	t.LastActivityAt = t.CreatedAt

	sql := `CREATE $rid SET
		task_id = $task_id, goal = $goal, status = $status, budget_pages = $budget_pages,
		pages_fetched = $pages_fetched, max_seconds = $max_seconds, created_at = $created_at,
		updated_at = $updated_at, last_activity_at = $last_activity_at,
		calibration_tag = $calibration_tag, stop_reason = $stop_reason`
	vars := taskVars(t)
	vars["rid"] = surrealmodels.NewRecordID("task", t.ID)

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	sql := "SELECT " + taskSelectFields + " FROM task WHERE task_id = $task_id"
	results, err := surrealdb.Query[[]models.Task](ctx, s.db, sql, map[string]any{"task_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *TaskStore) Update(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now()
	sql := `UPDATE $rid SET goal = $goal, status = $status, budget_pages = $budget_pages,
		pages_fetched = $pages_fetched, max_seconds = $max_seconds, updated_at = $updated_at,
		last_activity_at = $last_activity_at, calibration_tag = $calibration_tag, stop_reason = $stop_reason`
	vars := taskVars(t)
	vars["rid"] = surrealmodels.NewRecordID("task", t.ID)
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// CompareAndTransition atomically moves a task from fromStatus to toStatus.
// Returns false, nil if the task was not in fromStatus (a concurrent writer
// already moved it), rather than erroring.
func (s *TaskStore) CompareAndTransition(ctx context.Context, id, fromStatus, toStatus string) (bool, error) {
	sql := `UPDATE $rid SET status = $to, updated_at = $now WHERE status = $from RETURN BEFORE`
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("task", id),
		"to":   toStatus,
		"from": fromStatus,
		"now":  time.Now(),
	}
	results, err := surrealdb.Query[[]models.Task](ctx, s.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("failed to transition task: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return true, nil
	}
	return false, nil
}

func (s *TaskStore) IncrementPagesFetched(ctx context.Context, id string, delta int) error {
	sql := "UPDATE $rid SET pages_fetched = pages_fetched + $delta, last_activity_at = $now"
	vars := map[string]any{
		"rid":   surrealmodels.NewRecordID("task", id),
		"delta": delta,
		"now":   time.Now(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to increment pages fetched: %w", err)
	}
	return nil
}

func (s *TaskStore) TouchActivity(ctx context.Context, id string) error {
	sql := "UPDATE $rid SET last_activity_at = $now"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("task", id), "now": time.Now()}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to touch task activity: %w", err)
	}
	return nil
}

func (s *TaskStore) List(ctx context.Context, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	sql := "SELECT " + taskSelectFields + " FROM task ORDER BY created_at DESC LIMIT $limit"
	results, err := surrealdb.Query[[]models.Task](ctx, s.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	var tasks []*models.Task
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			tasks = append(tasks, &(*results)[0].Result[i])
		}
	}
	return tasks, nil
}

func taskVars(t *models.Task) map[string]any {
	return map[string]any{
		"task_id":           t.ID,
		"goal":              t.Goal,
		"status":            t.Status,
		"budget_pages":      t.BudgetPages,
		"pages_fetched":     t.PagesFetched,
		"max_seconds":       t.MaxSeconds,
		"created_at":        t.CreatedAt,
		"updated_at":        t.UpdatedAt,
		"last_activity_at":  t.LastActivityAt,
		"calibration_tag":   t.CalibrationTag,
		"stop_reason":       t.StopReason,
	}
}

var _ interfaces.TaskStore = (*TaskStore)(nil)
