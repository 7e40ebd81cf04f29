package models

import "time"

// Event types
const (
	EventTypeSessionStarted      = "SESSION_STARTED"
	EventTypeSessionFinalized    = "SESSION_FINALIZED"
	EventTypeSessionDiscarded    = "SESSION_DISCARDED"
	EventTypeCatalogEntryDeleted = "CATALOG_ENTRY_DELETED"
)

// Catalog entity kinds
const (
	EntityProduct  = "product"
	EntitySupplier = "supplier"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStartedEvent published when a draft session is created
type SessionStartedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id"`
}

// SessionFinalizedEvent hands a finalized session to email generation
type SessionFinalizedEvent struct {
	BaseEvent
	Payload FinalizedSessionPayload `json:"payload"`
}

// SessionDiscardedEvent published when a session is deleted
type SessionDiscardedEvent struct {
	BaseEvent
	SessionID string        `json:"session_id"`
	OwnerID   string        `json:"owner_id"`
	Status    SessionStatus `json:"status"`
}

// CatalogEntryDeletedEvent published after orphan cleanup removes a catalog entry
type CatalogEntryDeletedEvent struct {
	BaseEvent
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
}

// SupplierRef is the supplier shape handed to email generation
type SupplierRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SupplierGroup collects the items of a finalized session sent to one supplier
type SupplierGroup struct {
	Supplier SupplierRef   `json:"supplier"`
	Items    []SessionItem `json:"items"`
}

// FinalizedSessionPayload maps supplier ids to their item groups
type FinalizedSessionPayload struct {
	SessionID   string                    `json:"session_id"`
	OwnerID     string                    `json:"owner_id"`
	FinalizedAt time.Time                 `json:"finalized_at"`
	Groups      map[string]*SupplierGroup `json:"groups"`
	// SupplierOrder lists group keys in first-appearance order of the session items.
	SupplierOrder []string `json:"supplier_order"`
}

// ItemCount returns the number of items across all groups
func (p *FinalizedSessionPayload) ItemCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Items)
	}
	return n
}
