package events

import "time"

// Event types published on the bus.
const (
	TypeCatalogEnqueued  = "catalog.enqueued"
	TypeCatalogCompleted = "catalog.completed"
	TypeItemImported     = "item.imported"
)

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	CatalogID() string
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Catalog   string    `json:"catalog_id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) CatalogID() string     { return e.Catalog }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, catalogID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Catalog:   catalogID,
		Timestamp: time.Now(),
	}
}

// CatalogEnqueued fires when a catalog enters the queue. The import runner
// subscribes to it as the kick that starts a drain.
type CatalogEnqueued struct {
	BaseEvent
	MediaType string `json:"media_type"`
	ItemCount int    `json:"item_count"`
}

// NewCatalogEnqueued creates a CatalogEnqueued event.
func NewCatalogEnqueued(catalogID, mediaType string, itemCount int) CatalogEnqueued {
	return CatalogEnqueued{
		BaseEvent: NewBaseEvent(TypeCatalogEnqueued, catalogID),
		MediaType: mediaType,
		ItemCount: itemCount,
	}
}

// CatalogCompleted fires when a catalog's pending list empties and the
// record is removed from the queue.
type CatalogCompleted struct {
	BaseEvent
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
}

// NewCatalogCompleted creates a CatalogCompleted event.
func NewCatalogCompleted(catalogID string, success, failed int) CatalogCompleted {
	return CatalogCompleted{
		BaseEvent:    NewBaseEvent(TypeCatalogCompleted, catalogID),
		SuccessCount: success,
		FailedCount:  failed,
	}
}

// ItemImported fires after each item attempt, success or failure.
type ItemImported struct {
	BaseEvent
	ItemID  string `json:"item_id"`
	Success bool   `json:"success"`
}

// NewItemImported creates an ItemImported event.
func NewItemImported(catalogID, itemID string, success bool) ItemImported {
	return ItemImported{
		BaseEvent: NewBaseEvent(TypeItemImported, catalogID),
		ItemID:    itemID,
		Success:   success,
	}
}
