package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

const documentsTable = "documents"

// DocumentStore caches rendered documents keyed by template and cache key
type DocumentStore struct {
	db *DB
}

var _ DocumentRepository = (*DocumentStore)(nil)

func NewDocumentRepository(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// ContentHash generates the cache key for a raw feed document
func ContentHash(raw []byte) string {
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:])
}

// SourceKey generates the cache key for one page of a configured source.
// variant distinguishes builds of the same page, e.g. under different filters.
func SourceKey(sourceName string, start, maxResults int, variant string) string {
	key := fmt.Sprintf("source:%s:%d:%d", sourceName, start, maxResults)
	if variant != "" {
		key += ":" + variant
	}
	return key
}

// GetDocument returns nil when nothing is cached for the pair
func (r *DocumentStore) GetDocument(templateName, cacheKey string) (*Document, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "template", "cache_key", "body", "entry_count", "total_results", "created_at").
		From(documentsTable).
		Where(
			sb.Equal("template", templateName),
			sb.Equal("cache_key", cacheKey),
		).
		Limit(1)

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var doc Document
	var createdAt int64
	err := r.db.QueryRow(query, args...).Scan(
		&doc.ID, &doc.Template, &doc.CacheKey, &doc.Body, &doc.EntryCount, &doc.TotalResults, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &doc, nil
}

// SaveDocument stores a rendered body. Saving the same template and key
// again replaces the body and keeps the original ID. A zero CreatedAt means now.
func (r *DocumentStore) SaveDocument(doc Document) (string, error) {
	if doc.Template == "" || doc.CacheKey == "" {
		return "", fmt.Errorf("document template and cache key are required")
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto(documentsTable).
		Cols("id", "template", "cache_key", "body", "entry_count", "total_results", "created_at").
		Values(uuid.NewString(), doc.Template, doc.CacheKey, doc.Body, doc.EntryCount, doc.TotalResults, createdAt.Unix())
	ib.SQL(`ON CONFLICT (template, cache_key) DO UPDATE SET
		body = excluded.body,
		entry_count = excluded.entry_count,
		total_results = excluded.total_results,
		created_at = excluded.created_at
		RETURNING id`)

	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	var id string
	if err := r.db.QueryRow(query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	return id, nil
}

func (r *DocumentStore) GetDocumentCount() (int, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("COUNT(*)").From(documentsTable)

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

func (r *DocumentStore) DeleteDocumentsOlderThan(cutoff time.Time) (int64, error) {
	delb := sqlbuilder.NewDeleteBuilder()
	delb.DeleteFrom(documentsTable).
		Where(delb.LessThan("created_at", cutoff.Unix()))

	query, args := delb.BuildWithFlavor(sqlbuilder.SQLite)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted documents: %w", err)
	}

	return deleted, nil
}
