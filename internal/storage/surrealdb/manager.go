package surrealdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Manager implements interfaces.Store using SurrealDB.
type Manager struct {
	db       *surrealdb.DB
	logger   *common.Logger
	dataPath string

	tasks         *TaskStore
	jobs          *JobQueueStore
	exploration   *ExplorationStore
	materials     *MaterialStore
	calibration   *CalibrationStore
	intervention  *InterventionStore
	feedback      *FeedbackStore
	resourceIndex *ResourceIndexStore
}

// NewManager creates a new Store connected to SurrealDB and ensures every
// table the research core needs exists, schemaless (v3 errors on querying
// a table that was never DEFINEd).
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	tables := []string{
		"task", "job_queue", "job_dedup_lock", "exploration_state", "page", "fragment", "claim", "edge",
		"calibration_version", "intervention_queue", "domain_rule", "resource_index", "edge_correction",
	}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	dataPath := config.Storage.DataPath
	if dataPath == "" {
		dataPath = "data/lancet"
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data path: %w", err)
	}

	m := &Manager{
		db:       db,
		logger:   logger,
		dataPath: dataPath,
	}

	m.tasks = NewTaskStore(db, logger)
	m.jobs = NewJobQueueStore(db, logger)
	m.exploration = NewExplorationStore(db, logger)
	m.materials = NewMaterialStore(db, logger)
	m.calibration = NewCalibrationStore(db, logger)
	m.intervention = NewInterventionStore(db, logger)
	m.feedback = NewFeedbackStore(db, logger)
	m.resourceIndex = NewResourceIndexStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) Tasks() interfaces.TaskStore                 { return m.tasks }
func (m *Manager) Jobs() interfaces.JobQueueStore               { return m.jobs }
func (m *Manager) Exploration() interfaces.ExplorationStore     { return m.exploration }
func (m *Manager) Materials() interfaces.MaterialStore          { return m.materials }
func (m *Manager) Calibration() interfaces.CalibrationStore     { return m.calibration }
func (m *Manager) Intervention() interfaces.InterventionStore   { return m.intervention }
func (m *Manager) Feedback() interfaces.FeedbackStore           { return m.feedback }
func (m *Manager) ResourceIndex() interfaces.ResourceIndexStore { return m.resourceIndex }

// WriteRaw atomically persists a raw blob (fetched PDF, cached page body)
// outside the relational tables via a temp-file-then-rename.
func (m *Manager) WriteRaw(subdir, key string, data []byte) error {
	dir := filepath.Join(m.dataPath, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, key)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit file: %w", err)
	}

	return nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

var _ interfaces.Store = (*Manager)(nil)
