package service

import (
	"time"

	"restock-service/internal/models"
)

// SessionSummary is shown to the user before they confirm finalization
type SessionSummary struct {
	SessionID     string            `json:"session_id"`
	TotalItems    int               `json:"total_items"`
	TotalQuantity int               `json:"total_quantity"`
	SupplierCount int               `json:"supplier_count"`
	Suppliers     []SupplierSummary `json:"suppliers"`
}

// SupplierSummary is the per-supplier breakdown of a SessionSummary
type SupplierSummary struct {
	SupplierID    string `json:"supplier_id"`
	SupplierName  string `json:"supplier_name"`
	SupplierEmail string `json:"supplier_email"`
	ItemCount     int    `json:"item_count"`
	Quantity      int    `json:"quantity"`
}

func summarize(s *models.RestockSession) *SessionSummary {
	summary := &SessionSummary{
		SessionID:  s.ID,
		TotalItems: len(s.Items),
		Suppliers:  make([]SupplierSummary, 0),
	}

	pos := make(map[string]int)
	for _, item := range s.Items {
		summary.TotalQuantity += item.Quantity

		i, ok := pos[item.SupplierID]
		if !ok {
			i = len(summary.Suppliers)
			pos[item.SupplierID] = i
			summary.Suppliers = append(summary.Suppliers, SupplierSummary{
				SupplierID:    item.SupplierID,
				SupplierName:  item.SupplierName,
				SupplierEmail: item.SupplierEmail,
			})
		}
		summary.Suppliers[i].ItemCount++
		summary.Suppliers[i].Quantity += item.Quantity
	}
	summary.SupplierCount = len(summary.Suppliers)

	return summary
}

// groupBySupplier builds the email-generation payload. The supplier shown for a
// group is taken from the first item of that group, i.e. the denormalized copy
// captured when the item was added.
func groupBySupplier(s *models.RestockSession, finalizedAt time.Time) *models.FinalizedSessionPayload {
	payload := &models.FinalizedSessionPayload{
		SessionID:     s.ID,
		OwnerID:       s.OwnerID,
		FinalizedAt:   finalizedAt,
		Groups:        make(map[string]*models.SupplierGroup),
		SupplierOrder: make([]string, 0),
	}

	for _, item := range s.Items {
		g, ok := payload.Groups[item.SupplierID]
		if !ok {
			g = &models.SupplierGroup{
				Supplier: models.SupplierRef{
					ID:    item.SupplierID,
					Name:  item.SupplierName,
					Email: item.SupplierEmail,
				},
				Items: make([]models.SessionItem, 0, 1),
			}
			payload.Groups[item.SupplierID] = g
			payload.SupplierOrder = append(payload.SupplierOrder, item.SupplierID)
		}
		g.Items = append(g.Items, item)
	}

	return payload
}
