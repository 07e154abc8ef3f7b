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

// FeedbackStore implements interfaces.FeedbackStore using SurrealDB, backing
// the domain_block/unblock/clear_override and edge_correct FeedbackHandler actions.
type FeedbackStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewFeedbackStore creates a new FeedbackStore.
func NewFeedbackStore(db *surrealdb.DB, logger *common.Logger) *FeedbackStore {
	return &FeedbackStore{db: db, logger: logger}
}

func (s *FeedbackStore) BlockDomain(ctx context.Context, domain, reason string) error {
	sql := "UPSERT $rid SET domain = $domain, blocked = true, reason = $reason, updated_at = $now"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("domain_rule", domain),
		"domain": domain,
		"reason": reason,
		"now":    time.Now(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to block domain: %w", err)
	}
	return nil
}

func (s *FeedbackStore) UnblockDomain(ctx context.Context, domain string) error {
	sql := "UPSERT $rid SET domain = $domain, blocked = false, reason = '', updated_at = $now"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("domain_rule", domain),
		"domain": domain,
		"now":    time.Now(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to unblock domain: %w", err)
	}
	return nil
}

func (s *FeedbackStore) ClearOverride(ctx context.Context, domain string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("domain_rule", domain)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to clear domain override: %w", err)
	}
	return nil
}

func (s *FeedbackStore) IsBlocked(ctx context.Context, domain string) (bool, error) {
	sql := "SELECT blocked FROM domain_rule WHERE domain = $domain"
	type blockedResult struct {
		Blocked bool `json:"blocked"`
	}
	results, err := surrealdb.Query[[]blockedResult](ctx, s.db, sql, map[string]any{"domain": domain})
	if err != nil {
		return false, fmt.Errorf("failed to check domain block: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Blocked, nil
	}
	return false, nil
}

func (s *FeedbackStore) ListRules(ctx context.Context) ([]*models.DomainRule, error) {
	sql := "SELECT * FROM domain_rule ORDER BY updated_at DESC"
	results, err := surrealdb.Query[[]models.DomainRule](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list domain rules: %w", err)
	}
	var rules []*models.DomainRule
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			rules = append(rules, &(*results)[0].Result[i])
		}
	}
	return rules, nil
}

// LogEdgeCorrection records an edge_correct feedback action against the
// claim/edge ground truth as a new row, keyed by a generated id, in the
// edge_correction table.
func (s *FeedbackStore) LogEdgeCorrection(ctx context.Context, taskID, edgeID, correction string) error {
	id := uuid.New().String()[:12]
	sql := `UPSERT $rid SET record_id = $record_id, task_id = $task_id, edge_id = $edge_id,
		correction = $correction, created_at = $now`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("edge_correction", id),
		"record_id":  id,
		"task_id":    taskID,
		"edge_id":    edgeID,
		"correction": correction,
		"now":        time.Now(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to log edge correction: %w", err)
	}
	return nil
}

var _ interfaces.FeedbackStore = (*FeedbackStore)(nil)
