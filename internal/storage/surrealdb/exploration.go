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

// ExplorationStore implements interfaces.ExplorationStore using SurrealDB.
type ExplorationStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewExplorationStore creates a new ExplorationStore.
func NewExplorationStore(db *surrealdb.DB, logger *common.Logger) *ExplorationStore {
	return &ExplorationStore{db: db, logger: logger}
}

func (s *ExplorationStore) Get(ctx context.Context, taskID string) (*models.ExplorationState, error) {
	sql := "SELECT * FROM exploration_state WHERE task_id = $task_id"
	results, err := surrealdb.Query[[]models.ExplorationState](ctx, s.db, sql, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to get exploration state: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *ExplorationStore) Upsert(ctx context.Context, state *models.ExplorationState) error {
	state.LastUpdatedAt = time.Now()
	sql := `UPSERT $rid SET task_id = $task_id, targets_queued = $targets_queued,
		targets_running = $targets_running, targets_succeeded = $targets_succeeded,
		targets_failed = $targets_failed, pages_fetched = $pages_fetched,
		fragments_found = $fragments_found, claims_extracted = $claims_extracted,
		claims_rejected = $claims_rejected, searches = $searches, last_updated_at = $last_updated_at`
	vars := map[string]any{
		"rid":               surrealmodels.NewRecordID("exploration_state", state.TaskID),
		"task_id":           state.TaskID,
		"targets_queued":    state.TargetsQueued,
		"targets_running":   state.TargetsRunning,
		"targets_succeeded": state.TargetsSucceeded,
		"targets_failed":    state.TargetsFailed,
		"pages_fetched":     state.PagesFetched,
		"fragments_found":   state.FragmentsFound,
		"claims_extracted":  state.ClaimsExtracted,
		"claims_rejected":   state.ClaimsRejected,
		"searches":          state.Searches,
		"last_updated_at":   state.LastUpdatedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert exploration state: %w", err)
	}
	return nil
}

// UpsertSearch merges a single search_id's sub-state into the task's
// exploration row, read-modify-write like IncrementCounters.
func (s *ExplorationStore) UpsertSearch(ctx context.Context, taskID string, search *models.SearchSubState) error {
	existing, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &models.ExplorationState{TaskID: taskID}
	}
	if existing.Searches == nil {
		existing.Searches = make(map[string]*models.SearchSubState)
	}
	existing.Searches[search.SearchID] = search
	return s.Upsert(ctx, existing)
}

// IncrementCounters atomically bumps the named counters, creating the row
// (all other fields zero) if the task has no exploration state yet.
func (s *ExplorationStore) IncrementCounters(ctx context.Context, taskID string, deltas map[string]int) error {
	existing, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &models.ExplorationState{TaskID: taskID}
	}
	for field, delta := range deltas {
		switch field {
		case "targets_queued":
			existing.TargetsQueued += delta
		case "targets_running":
			existing.TargetsRunning += delta
		case "targets_succeeded":
			existing.TargetsSucceeded += delta
		case "targets_failed":
			existing.TargetsFailed += delta
		case "pages_fetched":
			existing.PagesFetched += delta
		case "fragments_found":
			existing.FragmentsFound += delta
		case "claims_extracted":
			existing.ClaimsExtracted += delta
		case "claims_rejected":
			existing.ClaimsRejected += delta
		}
	}
	return s.Upsert(ctx, existing)
}

var _ interfaces.ExplorationStore = (*ExplorationStore)(nil)
