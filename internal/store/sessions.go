package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"restock-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, session_id, product_id, supplier_id, product_name, supplier_name,
	supplier_email, quantity, notes, created_at`

// CreateSession creates a new draft session
func (s *Store) CreateSession(ctx context.Context, ownerID string) (*models.RestockSession, error) {
	query := `
		INSERT INTO restock_sessions (id, owner_id, status)
		VALUES ($1, $2, $3)
		RETURNING *`

	session := &models.RestockSession{}
	if err := s.db.GetContext(ctx, session, query,
		uuid.New().String(), ownerID, models.SessionStatusDraft); err != nil {
		return nil, err
	}
	session.Items = []models.SessionItem{}
	return session, nil
}

// GetSession retrieves a session with its items, or nil if it does not exist
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.RestockSession, error) {
	var session models.RestockSession
	err := s.db.GetContext(ctx, &session, "SELECT * FROM restock_sessions WHERE id = $1", sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session.Items = []models.SessionItem{}
	err = s.db.SelectContext(ctx, &session.Items,
		"SELECT "+itemColumns+" FROM session_items WHERE session_id = $1 ORDER BY position", sessionID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSessionStatus updates session status
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE restock_sessions SET status = $1, updated_at = NOW() WHERE id = $2",
		status, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	return nil
}

// AddItem appends an item to a session
func (s *Store) AddItem(ctx context.Context, sessionID string, item models.SessionItem) (*models.SessionItem, error) {
	query := `
		INSERT INTO session_items
			(id, session_id, product_id, supplier_id, product_name, supplier_name, supplier_email, quantity, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + itemColumns

	var saved models.SessionItem
	err := s.db.GetContext(ctx, &saved, query,
		item.ID, sessionID, item.ProductID, item.SupplierID, item.ProductName,
		item.SupplierName, item.SupplierEmail, item.Quantity, item.Notes)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateItem applies the non-nil fields of patch to an item
func (s *Store) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.SessionItem, error) {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.ProductID != nil {
		add("product_id", *patch.ProductID)
	}
	if patch.SupplierID != nil {
		add("supplier_id", *patch.SupplierID)
	}
	if patch.ProductName != nil {
		add("product_name", *patch.ProductName)
	}
	if patch.SupplierName != nil {
		add("supplier_name", *patch.SupplierName)
	}
	if patch.SupplierEmail != nil {
		add("supplier_email", *patch.SupplierEmail)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}

	var item models.SessionItem
	var err error
	if len(sets) == 0 {
		err = s.db.GetContext(ctx, &item,
			"SELECT "+itemColumns+" FROM session_items WHERE id = $1", itemID)
	} else {
		args = append(args, itemID)
		query := fmt.Sprintf("UPDATE session_items SET %s WHERE id = $%d RETURNING %s",
			strings.Join(sets, ", "), len(args), itemColumns)
		err = s.db.GetContext(ctx, &item, query, args...)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session item not found: %s", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem deletes an item; deleting a missing item is not an error
func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session_items WHERE id = $1", itemID)
	return err
}

// DeleteSession deletes a session; its items and drafts cascade
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM restock_sessions WHERE id = $1", sessionID)
	return err
}

// ListUnfinishedSessions retrieves the owner's draft sessions with their items, newest first
func (s *Store) ListUnfinishedSessions(ctx context.Context, ownerID string) ([]models.RestockSession, error) {
	var sessions []models.RestockSession
	err := s.db.SelectContext(ctx, &sessions,
		"SELECT * FROM restock_sessions WHERE owner_id = $1 AND status = $2 ORDER BY created_at DESC",
		ownerID, models.SessionStatusDraft)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []models.RestockSession{}, nil
	}

	ids := make([]string, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
		sessions[i].Items = []models.SessionItem{}
	}

	query, args, err := sqlx.In(
		"SELECT "+itemColumns+" FROM session_items WHERE session_id IN (?) ORDER BY position", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.SessionItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = i
	}
	for _, item := range items {
		i := byID[item.SessionID]
		sessions[i].Items = append(sessions[i].Items, item)
	}
	return sessions, nil
}
