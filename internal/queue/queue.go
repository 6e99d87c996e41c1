// Package queue implements the persistent, resumable catalog-import queue.
//
// A catalog is a named list of external item identifiers waiting to be
// imported into a library collection. The store is the single source of
// truth for pending work: it survives restarts by reloading a JSON snapshot
// at startup and rewriting it after every mutation.
package queue

import "time"

// MediaType selects the concurrency policy used when a catalog is drained.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// QueuedCatalog is one unit of durable import work.
type QueuedCatalog struct {
	CatalogID      string     `json:"catalog_id"`
	CollectionID   string     `json:"collection_id"`
	CatalogName    string     `json:"catalog_name"`
	MediaType      MediaType  `json:"media_type"`
	PendingIDs     []string   `json:"pending_ids"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailedCount    int        `json:"failed_count"`
	QueuedAt       time.Time  `json:"queued_at"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// TotalCount returns the number of items originally enqueued.
// ProcessedCount + len(PendingIDs) stays equal to it for the record's lifetime.
func (q *QueuedCatalog) TotalCount() int {
	return q.ProcessedCount + len(q.PendingIDs)
}

// clone returns a deep copy so callers never share PendingIDs with the store.
func (q *QueuedCatalog) clone() *QueuedCatalog {
	c := *q
	c.PendingIDs = append([]string(nil), q.PendingIDs...)
	if q.LastUpdated != nil {
		t := *q.LastUpdated
		c.LastUpdated = &t
	}
	return &c
}
