package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// InterventionStore implements interfaces.InterventionStore using SurrealDB,
// backing the get_auth_queue/resolve_auth human-in-the-loop surface.
type InterventionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewInterventionStore creates a new InterventionStore.
func NewInterventionStore(db *surrealdb.DB, logger *common.Logger) *InterventionStore {
	return &InterventionStore{db: db, logger: logger}
}

func (s *InterventionStore) Create(ctx context.Context, item *models.InterventionQueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()[:12]
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	sql := `UPSERT $rid SET item_id = $item_id, task_id = $task_id, url = $url, kind = $kind, domain = $domain,
		priority = $priority, prompt = $prompt, created_at = $created_at, resolved = $resolved,
		resolution = $resolution, resolved_at = $resolved_at`
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID("intervention_queue", item.ID),
		"item_id":     item.ID,
		"task_id":     item.TaskID,
		"url":         item.URL,
		"kind":        item.Kind,
		"domain":      item.Domain,
		"priority":    item.Priority,
		"prompt":      item.Prompt,
		"created_at":  item.CreatedAt,
		"resolved":    item.Resolved,
		"resolution":  item.Resolution,
		"resolved_at": item.ResolvedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create intervention item: %w", err)
	}
	return nil
}

func (s *InterventionStore) ListPending(ctx context.Context, taskID string) ([]*models.InterventionQueueItem, error) {
	sql := "SELECT item_id as id, task_id, url, kind, domain, priority, prompt, created_at, resolved, resolution, resolved_at FROM intervention_queue WHERE resolved = false"
	vars := map[string]any{}
	if taskID != "" {
		sql += " AND task_id = $task_id"
		vars["task_id"] = taskID
	}
	sql += " ORDER BY created_at ASC"
	results, err := surrealdb.Query[[]models.InterventionQueueItem](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending interventions: %w", err)
	}
	var items []*models.InterventionQueueItem
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			items = append(items, &(*results)[0].Result[i])
		}
	}
	return items, nil
}

func (s *InterventionStore) Resolve(ctx context.Context, id, resolution string) error {
	sql := "UPDATE $rid SET resolved = true, resolution = $resolution, resolved_at = $now"
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("intervention_queue", id),
		"resolution": resolution,
		"now":        time.Now(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to resolve intervention item: %w", err)
	}
	return nil
}

func (s *InterventionStore) Get(ctx context.Context, id string) (*models.InterventionQueueItem, error) {
	sql := "SELECT item_id as id, task_id, url, kind, domain, priority, prompt, created_at, resolved, resolution, resolved_at FROM intervention_queue WHERE item_id = $item_id"
	results, err := surrealdb.Query[[]models.InterventionQueueItem](ctx, s.db, sql, map[string]any{"item_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get intervention item: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

var _ interfaces.InterventionStore = (*InterventionStore)(nil)
