package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"
	"time"

	"restock-service/internal/models"
	"restock-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var draftBody = template.Must(template.New("draft").Parse(`Hi {{.Supplier.Name}},

Please find our restock order below:

{{range .Items}}- {{.Quantity}} x {{.ProductName}}{{if .Notes}} ({{.Notes}}){{end}}
{{end}}
Thank you.
`))

// EmailDraftService turns finalized sessions into one email draft per supplier.
// Delivery is left to whoever reads the drafts.
type EmailDraftService struct {
	store  DraftStore
	logger *zap.Logger
	now    func() time.Time
}

// NewEmailDraftService creates a new email draft service
func NewEmailDraftService(store DraftStore) *EmailDraftService {
	return &EmailDraftService{
		store:  store,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// BuildDrafts renders one draft per supplier group, in the order suppliers
// first appear in the session.
func (s *EmailDraftService) BuildDrafts(payload *models.FinalizedSessionPayload) ([]models.EmailDraft, error) {
	order := payload.SupplierOrder
	if len(order) != len(payload.Groups) {
		order = make([]string, 0, len(payload.Groups))
		for id := range payload.Groups {
			order = append(order, id)
		}
		sort.Strings(order)
	}

	subject := fmt.Sprintf("Restock order - %s", payload.FinalizedAt.Format("2 Jan 2006"))
	drafts := make([]models.EmailDraft, 0, len(order))
	for _, supplierID := range order {
		group, ok := payload.Groups[supplierID]
		if !ok {
			continue
		}

		var body bytes.Buffer
		if err := draftBody.Execute(&body, group); err != nil {
			return nil, fmt.Errorf("failed to render draft for supplier %s: %w", supplierID, err)
		}

		drafts = append(drafts, models.EmailDraft{
			ID:            uuid.New().String(),
			SessionID:     payload.SessionID,
			SupplierID:    supplierID,
			SupplierName:  group.Supplier.Name,
			SupplierEmail: group.Supplier.Email,
			Subject:       subject,
			Body:          body.String(),
			Position:      len(drafts),
			CreatedAt:     s.now(),
		})
	}
	return drafts, nil
}

// HandleSessionFinalized builds and stores drafts for a finalized session.
// Redelivered events are ignored.
func (s *EmailDraftService) HandleSessionFinalized(ctx context.Context, event *models.SessionFinalizedEvent) error {
	ctx, span := util.StartSpan(ctx, "EmailDraftService.HandleSessionFinalized",
		util.EventIDKey.String(event.EventID),
		util.SessionIDKey.String(event.Payload.SessionID))
	defer span.End()
	log := s.logger.With(util.TraceFields(ctx)...)

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return util.FailSpan(span, fmt.Errorf("failed to check event processed: %w", err))
	}
	if processed {
		log.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	drafts, err := s.BuildDrafts(&event.Payload)
	if err != nil {
		return util.FailSpan(span, err)
	}

	if err := s.store.SaveEmailDrafts(ctx, drafts); err != nil {
		return util.FailSpan(span, fmt.Errorf("failed to save email drafts: %w", err))
	}
	util.EmailDraftsGeneratedTotal.Add(float64(len(drafts)))

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Error("Failed to mark event processed", zap.Error(err))
	}

	log.Info("Email drafts generated",
		zap.String("session_id", event.Payload.SessionID),
		zap.Int("drafts", len(drafts)))
	return nil
}

// RegenerateDrafts rebuilds and replaces the drafts of a finalized session
// from its stored items.
func (s *EmailDraftService) RegenerateDrafts(ctx context.Context, session *models.RestockSession) ([]models.EmailDraft, error) {
	ctx, span := util.StartSpan(ctx, "EmailDraftService.RegenerateDrafts",
		util.OwnerIDKey.String(session.OwnerID),
		util.SessionIDKey.String(session.ID))
	defer span.End()

	if session.Status != models.SessionStatusFinalized {
		return nil, ErrSessionNotFinalized
	}

	drafts, err := s.BuildDrafts(groupBySupplier(session, session.UpdatedAt))
	if err != nil {
		return nil, util.FailSpan(span, err)
	}
	if err := s.store.SaveEmailDrafts(ctx, drafts); err != nil {
		return nil, util.FailSpan(span, persistenceErr("save_email_drafts", err))
	}
	util.EmailDraftsGeneratedTotal.Add(float64(len(drafts)))

	s.logger.With(util.TraceFields(ctx)...).Info("Email drafts regenerated",
		zap.String("session_id", session.ID),
		zap.Int("drafts", len(drafts)))
	return drafts, nil
}

// ListDrafts returns the stored drafts of a session
func (s *EmailDraftService) ListDrafts(ctx context.Context, sessionID string) ([]models.EmailDraft, error) {
	return s.store.ListEmailDrafts(ctx, sessionID)
}
