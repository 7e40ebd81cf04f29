package store

import (
	"context"

	"restock-service/internal/models"
)

// SaveEmailDrafts replaces the drafts of every session present in drafts
func (s *Store) SaveEmailDrafts(ctx context.Context, drafts []models.EmailDraft) error {
	if len(drafts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cleared := make(map[string]bool)
	for _, d := range drafts {
		if cleared[d.SessionID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM email_drafts WHERE session_id = $1", d.SessionID); err != nil {
			return err
		}
		cleared[d.SessionID] = true
	}

	for _, d := range drafts {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO email_drafts (id, session_id, supplier_id, supplier_name, supplier_email, subject, body, position, created_at)
			VALUES (:id, :session_id, :supplier_id, :supplier_name, :supplier_email, :subject, :body, :position, :created_at)`, d)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListEmailDrafts retrieves the drafts of a session in the order they were built
func (s *Store) ListEmailDrafts(ctx context.Context, sessionID string) ([]models.EmailDraft, error) {
	drafts := []models.EmailDraft{}
	err := s.db.SelectContext(ctx, &drafts,
		"SELECT * FROM email_drafts WHERE session_id = $1 ORDER BY position, created_at", sessionID)
	return drafts, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
