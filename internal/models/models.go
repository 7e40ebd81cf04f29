package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Product represents a restockable catalog entry
type Product struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	NameKey           string    `db:"name_key" json:"-"`
	DefaultQuantity   int       `db:"default_quantity" json:"default_quantity"`
	DefaultSupplierID *string   `db:"default_supplier_id" json:"default_supplier_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Supplier represents a contact that receives restock emails
type Supplier struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	NameKey   string    `db:"name_key" json:"-"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RestockSession is the shopping-list aggregate owned by one user
type RestockSession struct {
	ID        string        `db:"id" json:"id"`
	OwnerID   string        `db:"owner_id" json:"owner_id"`
	Status    SessionStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
	Items     []SessionItem `db:"-" json:"items"`
}

// SessionItem is one product line within a session
type SessionItem struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	ProductID     string    `db:"product_id" json:"product_id"`
	SupplierID    string    `db:"supplier_id" json:"supplier_id"`
	ProductName   string    `db:"product_name" json:"product_name"`
	SupplierName  string    `db:"supplier_name" json:"supplier_name"`
	SupplierEmail string    `db:"supplier_email" json:"supplier_email"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ProductInput is the upsert request for a product
type ProductInput struct {
	Name              string
	DefaultQuantity   int
	DefaultSupplierID *string
}

// SupplierInput is the upsert request for a supplier
type SupplierInput struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// ItemPatch carries the fields of an item update; nil fields are left untouched
type ItemPatch struct {
	ProductID     *string
	SupplierID    *string
	ProductName   *string
	SupplierName  *string
	SupplierEmail *string
	Quantity      *int
	Notes         *string
}

// Apply copies the non-nil fields of the patch onto item
func (p ItemPatch) Apply(item *SessionItem) {
	if p.ProductID != nil {
		item.ProductID = *p.ProductID
	}
	if p.SupplierID != nil {
		item.SupplierID = *p.SupplierID
	}
	if p.ProductName != nil {
		item.ProductName = *p.ProductName
	}
	if p.SupplierName != nil {
		item.SupplierName = *p.SupplierName
	}
	if p.SupplierEmail != nil {
		item.SupplierEmail = *p.SupplierEmail
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
}

// IsEmpty reports whether the patch changes nothing
func (p ItemPatch) IsEmpty() bool {
	return p.ProductID == nil && p.SupplierID == nil && p.ProductName == nil &&
		p.SupplierName == nil && p.SupplierEmail == nil && p.Quantity == nil && p.Notes == nil
}

// EmailDraft is a generated, undelivered supplier email for a finalized session
type EmailDraft struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	SupplierID    string    `db:"supplier_id" json:"supplier_id"`
	SupplierName  string    `db:"supplier_name" json:"supplier_name"`
	SupplierEmail string    `db:"supplier_email" json:"supplier_email"`
	Subject       string    `db:"subject" json:"subject"`
	Body          string    `db:"body" json:"body"`
	Position      int       `db:"position" json:"position"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// NormalizeName returns the deduplication key for a product or supplier name:
// trimmed and case-folded. Display names keep their original casing.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
