// Package history persists per-item import outcomes for status reporting.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Entry represents one attempted item import.
type Entry struct {
	ID           int64
	RunID        string
	CatalogID    string
	CatalogName  string
	CollectionID string
	ItemID       string
	MediaType    string
	Success      bool
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Filter specifies criteria for listing history.
type Filter struct {
	CatalogID *string
	RunID     *string
	Success   *bool
	Limit     int
}

// Store persists history records.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a new history entry.
func (s *Store) Add(e *Entry) error {
	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO import_history
			(run_id, catalog_id, catalog_name, collection_id, item_id, media_type, success, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.CatalogID, e.CatalogName, e.CollectionID, e.ItemID,
		e.MediaType, e.Success, e.Error, e.Duration.Milliseconds(), now,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	return nil
}

// List returns history entries matching the filter, most recent first.
func (s *Store) List(f Filter) ([]*Entry, error) {
	var conditions []string
	var args []any

	if f.CatalogID != nil {
		conditions = append(conditions, "catalog_id = ?")
		args = append(args, *f.CatalogID)
	}
	if f.RunID != nil {
		conditions = append(conditions, "run_id = ?")
		args = append(args, *f.RunID)
	}
	if f.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *f.Success)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT id, run_id, catalog_id, catalog_name, collection_id, item_id,
		media_type, success, error, duration_ms, created_at
		FROM import_history ` + whereClause + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var durationMs int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.CatalogID, &e.CatalogName,
			&e.CollectionID, &e.ItemID, &e.MediaType, &e.Success, &e.Error,
			&durationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Prune removes entries older than the cutoff and returns how many were deleted.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM import_history WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return result.RowsAffected()
}
