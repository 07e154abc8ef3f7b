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

// CalibrationStore implements interfaces.CalibrationStore using SurrealDB.
type CalibrationStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewCalibrationStore creates a new CalibrationStore.
func NewCalibrationStore(db *surrealdb.DB, logger *common.Logger) *CalibrationStore {
	return &CalibrationStore{db: db, logger: logger}
}

func (s *CalibrationStore) Active(ctx context.Context) (*models.CalibrationVersion, error) {
	sql := "SELECT * FROM calibration_version WHERE active = true LIMIT 1"
	results, err := surrealdb.Query[[]models.CalibrationVersion](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get active calibration version: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *CalibrationStore) Get(ctx context.Context, tag string) (*models.CalibrationVersion, error) {
	sql := "SELECT * FROM calibration_version WHERE tag = $tag"
	results, err := surrealdb.Query[[]models.CalibrationVersion](ctx, s.db, sql, map[string]any{"tag": tag})
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration version: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *CalibrationStore) List(ctx context.Context) ([]*models.CalibrationVersion, error) {
	sql := "SELECT * FROM calibration_version ORDER BY created_at DESC"
	results, err := surrealdb.Query[[]models.CalibrationVersion](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration versions: %w", err)
	}
	var versions []*models.CalibrationVersion
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			versions = append(versions, &(*results)[0].Result[i])
		}
	}
	return versions, nil
}

func (s *CalibrationStore) Save(ctx context.Context, v *models.CalibrationVersion) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	sql := `UPSERT $rid SET tag = $tag, created_at = $created_at, active = $active,
		sample_count = $sample_count, precision = $precision, recall = $recall,
		brier_score = $brier_score, notes = $notes`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("calibration_version", v.Tag),
		"tag":          v.Tag,
		"created_at":   v.CreatedAt,
		"active":       v.Active,
		"sample_count": v.SampleCount,
		"precision":    v.Precision,
		"recall":       v.Recall,
		"brier_score":  v.BrierScore,
		"notes":        v.Notes,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save calibration version: %w", err)
	}
	return nil
}

// SetActive flips the active pointer to tag, clearing it from every other
// version, used by calibration_rollback.
func (s *CalibrationStore) SetActive(ctx context.Context, tag string) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "UPDATE calibration_version SET active = false WHERE active = true", nil); err != nil {
		return fmt.Errorf("failed to clear active calibration version: %w", err)
	}
	sql := "UPDATE $rid SET active = true"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("calibration_version", tag)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to set active calibration version: %w", err)
	}
	return nil
}

var _ interfaces.CalibrationStore = (*CalibrationStore)(nil)
