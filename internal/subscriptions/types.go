package subscriptions

import (
	"fmt"
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/enums"
)

const allVariants = "all"

// Key is the natural key of a subscription. An empty VariantID means the
// customer follows every variant of the product.
type Key struct {
	ShopID     string
	CustomerID string
	ProductID  string
	VariantID  string
	Type       enums.NotificationType
}

// ID renders the deterministic subscription identifier. Distinct keys can
// render the same string, so the store never indexes records by it.
func (k Key) ID() string {
	variant := k.VariantID
	if variant == "" {
		variant = allVariants
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s", k.ShopID, k.CustomerID, k.ProductID, variant, k.Type)
}

// Subscription is a customer's request to be alerted about a product.
type Subscription struct {
	ID               string                 `json:"id"`
	CustomerID       string                 `json:"customerId"`
	ShopID           string                 `json:"shopId"`
	ProductID        string                 `json:"productId"`
	VariantID        string                 `json:"variantId,omitempty"`
	NotificationType enums.NotificationType `json:"notificationType"`
	IsActive         bool                   `json:"isActive"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// Key returns the natural key of the subscription.
func (s Subscription) Key() Key {
	return Key{
		ShopID:     s.ShopID,
		CustomerID: s.CustomerID,
		ProductID:  s.ProductID,
		VariantID:  s.VariantID,
		Type:       s.NotificationType,
	}
}

// matches applies the variant wildcard in both directions: a query without a
// variant matches every subscription for the product, and a subscription
// without a variant matches every queried variant.
func (s Subscription) matches(shopID, productID, variantID string) bool {
	if !s.IsActive || s.ShopID != shopID || s.ProductID != productID {
		return false
	}
	return variantID == "" || s.VariantID == "" || s.VariantID == variantID
}
