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

// MaterialStore implements interfaces.MaterialStore using SurrealDB, persisting
// the pages/fragments/claims/edges harvested during exploration.
type MaterialStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewMaterialStore creates a new MaterialStore.
func NewMaterialStore(db *surrealdb.DB, logger *common.Logger) *MaterialStore {
	return &MaterialStore{db: db, logger: logger}
}

func (s *MaterialStore) SavePage(ctx context.Context, p *models.Page) error {
	if p.ID == "" {
		p.ID = uuid.New().String()[:12]
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now()
	}
	sql := `UPSERT $rid SET page_id = $page_id, task_id = $task_id, url = $url, doi = $doi,
		title = $title, content_hash = $content_hash, fetched_at = $fetched_at,
		source_depth = $source_depth, fetch_error = $fetch_error`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("page", p.ID),
		"page_id":      p.ID,
		"task_id":      p.TaskID,
		"url":          p.URL,
		"doi":          p.DOI,
		"title":        p.Title,
		"content_hash": p.ContentHash,
		"fetched_at":   p.FetchedAt,
		"source_depth": p.SourceDepth,
		"fetch_error":  p.FetchError,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

func (s *MaterialStore) SaveFragment(ctx context.Context, f *models.Fragment) error {
	if f.ID == "" {
		f.ID = uuid.New().String()[:12]
	}
	sql := `UPSERT $rid SET fragment_id = $fragment_id, page_id = $page_id, task_id = $task_id,
		text = $text, offset = $offset`
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID("fragment", f.ID),
		"fragment_id": f.ID,
		"page_id":     f.PageID,
		"task_id":     f.TaskID,
		"text":        f.Text,
		"offset":      f.Offset,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save fragment: %w", err)
	}
	return nil
}

func (s *MaterialStore) GetFragment(ctx context.Context, id string) (*models.Fragment, error) {
	sql := "SELECT fragment_id as id, page_id, task_id, text, offset FROM fragment WHERE fragment_id = $fragment_id"
	results, err := surrealdb.Query[[]models.Fragment](ctx, s.db, sql, map[string]any{"fragment_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get fragment: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *MaterialStore) ListFragments(ctx context.Context, taskID string) ([]*models.Fragment, error) {
	sql := "SELECT fragment_id as id, page_id, task_id, text, offset FROM fragment WHERE task_id = $task_id"
	results, err := surrealdb.Query[[]models.Fragment](ctx, s.db, sql, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	var fragments []*models.Fragment
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			fragments = append(fragments, &(*results)[0].Result[i])
		}
	}
	return fragments, nil
}

func (s *MaterialStore) SaveClaim(ctx context.Context, c *models.Claim) error {
	if c.ID == "" {
		c.ID = uuid.New().String()[:12]
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	sql := `UPSERT $rid SET claim_id = $claim_id, task_id = $task_id, fragment_id = $fragment_id,
		text = $text, confidence = $confidence, calibration_tag = $calibration_tag,
		rejected = $rejected, rejected_reason = $rejected_reason, created_at = $created_at`
	vars := map[string]any{
		"rid":             surrealmodels.NewRecordID("claim", c.ID),
		"claim_id":        c.ID,
		"task_id":         c.TaskID,
		"fragment_id":     c.FragmentID,
		"text":            c.Text,
		"confidence":      c.Confidence,
		"calibration_tag": c.CalibrationTag,
		"rejected":        c.Rejected,
		"rejected_reason": c.RejectedReason,
		"created_at":      c.CreatedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}
	return nil
}

func (s *MaterialStore) SaveEdge(ctx context.Context, e *models.Edge) error {
	if e.ID == "" {
		e.ID = uuid.New().String()[:12]
	}
	sql := `UPSERT $rid SET edge_id = $edge_id, task_id = $task_id, from_page_id = $from_page_id,
		to_page_id = $to_page_id, relationship = $relationship`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("edge", e.ID),
		"edge_id":      e.ID,
		"task_id":      e.TaskID,
		"from_page_id": e.FromPageID,
		"to_page_id":   e.ToPageID,
		"relationship": e.Relationship,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}
	return nil
}

func (s *MaterialStore) RejectClaim(ctx context.Context, claimID, reason string) error {
	sql := "UPDATE $rid SET rejected = true, rejected_reason = $reason"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("claim", claimID), "reason": reason}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to reject claim: %w", err)
	}
	return nil
}

func (s *MaterialStore) RestoreClaim(ctx context.Context, claimID string) error {
	sql := "UPDATE $rid SET rejected = false, rejected_reason = ''"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("claim", claimID)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to restore claim: %w", err)
	}
	return nil
}

func (s *MaterialStore) ListPages(ctx context.Context, taskID string) ([]*models.Page, error) {
	sql := "SELECT page_id as id, task_id, url, doi, title, content_hash, fetched_at, source_depth, fetch_error FROM page WHERE task_id = $task_id ORDER BY fetched_at ASC"
	results, err := surrealdb.Query[[]models.Page](ctx, s.db, sql, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	var pages []*models.Page
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			pages = append(pages, &(*results)[0].Result[i])
		}
	}
	return pages, nil
}

// ListClaims lists claims for a task, or across all tasks when taskID is
// empty (used by calibration_metrics to evaluate a calibration version
// against every claim it was applied to, not just one task's).
func (s *MaterialStore) ListClaims(ctx context.Context, taskID string, includeRejected bool) ([]*models.Claim, error) {
	sql := "SELECT claim_id as id, task_id, fragment_id, text, confidence, calibration_tag, rejected, rejected_reason, created_at FROM claim"
	vars := map[string]any{}
	where := []string{}
	if taskID != "" {
		where = append(where, "task_id = $task_id")
		vars["task_id"] = taskID
	}
	if !includeRejected {
		where = append(where, "rejected = false")
	}
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at ASC"
	results, err := surrealdb.Query[[]models.Claim](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	var claims []*models.Claim
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			claims = append(claims, &(*results)[0].Result[i])
		}
	}
	return claims, nil
}

func (s *MaterialStore) ListEdges(ctx context.Context, taskID string) ([]*models.Edge, error) {
	sql := "SELECT edge_id as id, task_id, from_page_id, to_page_id, relationship FROM edge WHERE task_id = $task_id"
	results, err := surrealdb.Query[[]models.Edge](ctx, s.db, sql, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	var edges []*models.Edge
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			edges = append(edges, &(*results)[0].Result[i])
		}
	}
	return edges, nil
}

var _ interfaces.MaterialStore = (*MaterialStore)(nil)
