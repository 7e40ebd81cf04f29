package service

import (
	"context"
	"testing"
	"time"

	"restock-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizedPayload() models.FinalizedSessionPayload {
	return models.FinalizedSessionPayload{
		SessionID:     "s-1",
		OwnerID:       "owner-1",
		FinalizedAt:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		SupplierOrder: []string{"sup-2", "sup-1"},
		Groups: map[string]*models.SupplierGroup{
			"sup-1": {
				Supplier: models.SupplierRef{ID: "sup-1", Name: "Acme", Email: "a@acme.test"},
				Items:    []models.SessionItem{{ID: "i-2", ProductName: "Soap", Quantity: 2}},
			},
			"sup-2": {
				Supplier: models.SupplierRef{ID: "sup-2", Name: "Fresh Farms", Email: "o@ff.com"},
				Items: []models.SessionItem{
					{ID: "i-1", ProductName: "Bananas", Quantity: 10, Notes: "ripe"},
					{ID: "i-3", ProductName: "Bread", Quantity: 5},
				},
			},
		},
	}
}

func TestBuildDraftsFollowsSupplierOrder(t *testing.T) {
	svc := NewEmailDraftService(newFlakyStore())
	payload := finalizedPayload()

	drafts, err := svc.BuildDrafts(&payload)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "Fresh Farms", drafts[0].SupplierName)
	assert.Equal(t, "o@ff.com", drafts[0].SupplierEmail)
	assert.Equal(t, "Restock order - 5 Mar 2024", drafts[0].Subject)
	assert.Contains(t, drafts[0].Body, "Hi Fresh Farms,")
	assert.Contains(t, drafts[0].Body, "- 10 x Bananas (ripe)\n- 5 x Bread\n")
	assert.Equal(t, "Acme", drafts[1].SupplierName)
	assert.Contains(t, drafts[1].Body, "- 2 x Soap\n")
	assert.Equal(t, 0, drafts[0].Position)
	assert.Equal(t, 1, drafts[1].Position)
}

func TestStoredDraftsKeepSupplierOrder(t *testing.T) {
	s := newFlakyStore()
	svc := NewEmailDraftService(s)
	ctx := context.Background()

	event := &models.SessionFinalizedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeSessionFinalized},
		Payload:   finalizedPayload(),
	}
	require.NoError(t, svc.HandleSessionFinalized(ctx, event))

	drafts, err := svc.ListDrafts(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Fresh Farms", drafts[0].SupplierName, "first supplier added comes first, not alphabetically")
	assert.Equal(t, "Acme", drafts[1].SupplierName)
}

func TestBuildDraftsWithoutSupplierOrder(t *testing.T) {
	svc := NewEmailDraftService(newFlakyStore())
	payload := finalizedPayload()
	payload.SupplierOrder = nil

	drafts, err := svc.BuildDrafts(&payload)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "sup-1", drafts[0].SupplierID)
	assert.Equal(t, "sup-2", drafts[1].SupplierID)
}

func TestHandleSessionFinalizedSkipsProcessedEvents(t *testing.T) {
	s := newFlakyStore()
	svc := NewEmailDraftService(s)
	ctx := context.Background()

	event := &models.SessionFinalizedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeSessionFinalized},
		Payload:   finalizedPayload(),
	}

	require.NoError(t, svc.HandleSessionFinalized(ctx, event))
	first, err := svc.ListDrafts(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, first, 2)

	require.NoError(t, svc.HandleSessionFinalized(ctx, event))
	second, err := svc.ListDrafts(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCommittedSessionProducesDrafts(t *testing.T) {
	m, s := startedManager(t)
	ctx := context.Background()

	_, err := m.AddItem(ctx, item("Bananas", 10, "Fresh Farms", "o@ff.com"))
	require.NoError(t, err)
	_, err = m.AddItem(ctx, item("Bread", 5, "Fresh Farms", "o@ff.com"))
	require.NoError(t, err)

	payload, err := m.CommitFinalization(ctx)
	require.NoError(t, err)

	svc := NewEmailDraftService(s)
	drafts, err := svc.BuildDrafts(payload)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].Body, "- 10 x Bananas\n- 5 x Bread\n")
}
