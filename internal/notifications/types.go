package notifications

import (
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/enums"
)

// Record is an alert generated for a customer. Records are append-only; only
// the sent flag and timestamp change after creation.
type Record struct {
	ID               string                 `json:"id"`
	CustomerID       string                 `json:"customerId"`
	ShopID           string                 `json:"shopId"`
	ProductID        string                 `json:"productId"`
	VariantID        string                 `json:"variantId,omitempty"`
	NotificationType enums.NotificationType `json:"type"`
	Message          string                 `json:"message"`
	Sent             bool                   `json:"sent"`
	CreatedAt        time.Time              `json:"createdAt"`
	SentAt           *time.Time             `json:"sentAt,omitempty"`
}

// CreateParams describes a new notification record.
type CreateParams struct {
	CustomerID       string
	ShopID           string
	ProductID        string
	VariantID        string
	NotificationType enums.NotificationType
	Message          string
}

func (r *Record) clone() Record {
	out := *r
	if r.SentAt != nil {
		sentAt := *r.SentAt
		out.SentAt = &sentAt
	}
	return out
}
