package v1

import (
	"time"

	"github.com/vmunix/catarr/internal/queue"
)

// enqueueRequest is the body for POST /catalogs.
type enqueueRequest struct {
	CatalogID    string   `json:"catalog_id"`
	CollectionID string   `json:"collection_id"`
	CatalogName  string   `json:"catalog_name"`
	MediaType    string   `json:"media_type"`
	ItemIDs      []string `json:"item_ids"`
}

// catalogResponse is the API representation of a queued catalog.
type catalogResponse struct {
	CatalogID      string     `json:"catalog_id"`
	CollectionID   string     `json:"collection_id"`
	CatalogName    string     `json:"catalog_name"`
	MediaType      string     `json:"media_type"`
	PendingCount   int        `json:"pending_count"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailedCount    int        `json:"failed_count"`
	TotalCount     int        `json:"total_count"`
	QueuedAt       time.Time  `json:"queued_at"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// listQueueResponse is the response for GET /queue.
type listQueueResponse struct {
	Items []catalogResponse `json:"items"`
	Total int               `json:"total"`
}

// historyEntryResponse is the API representation of one import attempt.
type historyEntryResponse struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	CatalogID  string    `json:"catalog_id"`
	ItemID     string    `json:"item_id"`
	MediaType  string    `json:"media_type"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// listHistoryResponse is the response for GET /history.
type listHistoryResponse struct {
	Items []historyEntryResponse `json:"items"`
	Total int                    `json:"total"`
}

// statusResponse is the response for GET /system/status.
type statusResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	HasPending   bool   `json:"has_pending"`
	PendingCount int    `json:"pending_count"`
}

func catalogToResponse(c *queue.QueuedCatalog) catalogResponse {
	return catalogResponse{
		CatalogID:      c.CatalogID,
		CollectionID:   c.CollectionID,
		CatalogName:    c.CatalogName,
		MediaType:      string(c.MediaType),
		PendingCount:   len(c.PendingIDs),
		ProcessedCount: c.ProcessedCount,
		SuccessCount:   c.SuccessCount,
		FailedCount:    c.FailedCount,
		TotalCount:     c.TotalCount(),
		QueuedAt:       c.QueuedAt,
		LastUpdated:    c.LastUpdated,
	}
}
