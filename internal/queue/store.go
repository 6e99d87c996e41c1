package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Store is the durable catalog queue. All reads and read-modify-write
// operations are serialized by a single mutex; every mutation rewrites the
// snapshot file before the method returns. A failed write is logged and the
// in-memory state is kept, so at most the progress since the last successful
// write can be lost by a crash.
type Store struct {
	path string
	log  *slog.Logger

	mu       sync.Mutex
	catalogs map[string]*QueuedCatalog
}

// NewStore creates a store backed by the snapshot file at path and loads any
// existing state. A missing, unreadable, or corrupt snapshot is not fatal:
// the store starts empty and logs a warning.
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		path:     path,
		log:      log.With("component", "queue"),
		catalogs: make(map[string]*QueuedCatalog),
	}
	if err := s.load(); err != nil {
		s.log.Warn("queue snapshot unreadable, starting empty", "path", path, "error", err)
	}
	return s
}

// Enqueue creates a record for catalogID, overwriting any existing record
// for the same id and discarding its progress. An empty itemIDs list is a
// no-op. The snapshot is written before Enqueue returns.
func (s *Store) Enqueue(catalogID, collectionID string, itemIDs []string, mediaType MediaType, catalogName string) {
	if len(itemIDs) == 0 {
		s.log.Debug("ignoring enqueue with no items", "catalog_id", catalogID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.catalogs[catalogID]; exists {
		s.log.Info("re-enqueue discards prior progress", "catalog_id", catalogID)
	}

	s.catalogs[catalogID] = &QueuedCatalog{
		CatalogID:    catalogID,
		CollectionID: collectionID,
		CatalogName:  catalogName,
		MediaType:    mediaType,
		PendingIDs:   append([]string(nil), itemIDs...),
		QueuedAt:     time.Now(),
	}
	s.save()

	s.log.Info("catalog enqueued",
		"catalog_id", catalogID,
		"name", catalogName,
		"media_type", mediaType,
		"items", len(itemIDs),
	)
}

// PeekNext returns a copy of the oldest pending catalog, or nil when the
// queue is empty. It does not reserve the record; the caller is responsible
// for running a single drain at a time.
func (s *Store) PeekNext() *QueuedCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *QueuedCatalog
	for _, c := range s.catalogs {
		if len(c.PendingIDs) == 0 {
			// A concurrent RemoveCompletedID may have drained it already.
			continue
		}
		if next == nil || c.QueuedAt.Before(next.QueuedAt) {
			next = c
		}
	}
	if next == nil {
		return nil
	}
	return next.clone()
}

// Get returns a copy of the record for catalogID, or nil if absent.
func (s *Store) Get(catalogID string) *QueuedCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return nil
	}
	return c.clone()
}

// All returns copies of every record ordered by non-decreasing QueuedAt.
func (s *Store) All() []*QueuedCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*QueuedCatalog, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		out = append(out, c.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}

// HasPending reports whether any catalog remains in the queue.
func (s *Store) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.catalogs) > 0
}

// PendingCount returns the number of queued catalogs.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.catalogs)
}

// UpdateProgress overwrites the counters for catalogID and stamps
// LastUpdated. No-op if the catalog is absent.
func (s *Store) UpdateProgress(catalogID string, processed, success, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return
	}
	now := time.Now()
	c.ProcessedCount = processed
	c.SuccessCount = success
	c.FailedCount = failed
	c.LastUpdated = &now
	s.save()
}

// RemoveCompletedID removes itemID from the catalog's pending list. When the
// list empties the record is removed entirely, as if MarkComplete had been
// called, rather than persisting an empty-but-present record.
func (s *Store) RemoveCompletedID(catalogID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return
	}

	for i, id := range c.PendingIDs {
		if id == itemID {
			c.PendingIDs = append(c.PendingIDs[:i], c.PendingIDs[i+1:]...)
			break
		}
	}

	if len(c.PendingIDs) == 0 {
		s.complete(c)
		return
	}
	s.save()
}

// Checkpoint records the outcome of one item as a single atomic step:
// the counters are overwritten and itemID leaves the pending list with no
// observable state in between, so processed + pending always equals the
// original total. When the pending list empties the record is completed.
// A checkpoint for an item the record does not hold is a full no-op,
// counters included: a drain that outlived a re-enqueue must not leak its
// progress into the fresh record.
func (s *Store) Checkpoint(catalogID, itemID string, processed, success, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return
	}

	found := false
	for i, id := range c.PendingIDs {
		if id == itemID {
			c.PendingIDs = append(c.PendingIDs[:i], c.PendingIDs[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.log.Debug("ignoring checkpoint for unknown item",
			"catalog_id", catalogID, "item_id", itemID)
		return
	}

	now := time.Now()
	c.ProcessedCount = processed
	c.SuccessCount = success
	c.FailedCount = failed
	c.LastUpdated = &now

	if len(c.PendingIDs) == 0 {
		s.complete(c)
		return
	}
	s.save()
}

// MarkComplete removes the record for catalogID and logs its final counters.
// Calling it for an absent id is a no-op.
func (s *Store) MarkComplete(catalogID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return
	}
	s.complete(c)
}

// complete removes the record and persists. Caller holds s.mu.
func (s *Store) complete(c *QueuedCatalog) {
	delete(s.catalogs, c.CatalogID)
	s.save()

	s.log.Info("catalog complete",
		"catalog_id", c.CatalogID,
		"name", c.CatalogName,
		"processed", c.ProcessedCount,
		"success", c.SuccessCount,
		"failed", c.FailedCount,
	)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []*QueuedCatalog
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	for _, c := range records {
		if c.CatalogID == "" {
			continue
		}
		s.catalogs[c.CatalogID] = c
	}
	s.log.Debug("queue snapshot loaded", "path", s.path, "catalogs", len(s.catalogs))
	return nil
}

// save rewrites the snapshot atomically via a temp file. Caller holds s.mu.
// Write failures are logged, never propagated: the in-memory map remains the
// authoritative runtime state.
func (s *Store) save() {
	records := make([]*QueuedCatalog, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		records = append(records, c)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].QueuedAt.Before(records[j].QueuedAt)
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		s.log.Error("marshal queue snapshot failed", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Error("create snapshot directory failed", "path", s.path, "error", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.log.Error("write queue snapshot failed", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		s.log.Error("rename queue snapshot failed", "path", s.path, "error", err)
	}
}
