package surrealdb

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"golang.org/x/crypto/blake2b"
)

// ResourceIndexStore implements interfaces.ResourceIndexStore using SurrealDB,
// deduplicating fetched content by normalized URL/DOI key and content hash.
type ResourceIndexStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewResourceIndexStore creates a new ResourceIndexStore.
func NewResourceIndexStore(db *surrealdb.DB, logger *common.Logger) *ResourceIndexStore {
	return &ResourceIndexStore{db: db, logger: logger}
}

func (s *ResourceIndexStore) Lookup(ctx context.Context, key string) (*models.ResourceIndexEntry, error) {
	sql := "SELECT * FROM resource_index WHERE key = $key"
	results, err := surrealdb.Query[[]models.ResourceIndexEntry](ctx, s.db, sql, map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("failed to look up resource index entry: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *ResourceIndexStore) Upsert(ctx context.Context, entry *models.ResourceIndexEntry) error {
	entry.UpdatedAt = time.Now()
	sql := "UPSERT $rid SET key = $key, page_id = $page_id, content_hash = $content_hash, updated_at = $updated_at"
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("resource_index", recordSafeKey(entry.Key)),
		"key":          entry.Key,
		"page_id":      entry.PageID,
		"content_hash": entry.ContentHash,
		"updated_at":   entry.UpdatedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert resource index entry: %w", err)
	}
	return nil
}

// recordSafeKey hashes an arbitrary lookup key (a normalized URL or "doi:<doi>"
// string, which may contain characters SurrealDB record IDs reject) into a
// stable hex digest suitable as a record ID.
func recordSafeKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

var _ interfaces.ResourceIndexStore = (*ResourceIndexStore)(nil)
