package webhooks

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
)

const actionRemovedFromWishlist = "removed_from_wishlist"

// ProcessedItem records a wishlist item removed because it was purchased.
type ProcessedItem struct {
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	WishlistID string `json:"wishlistId"`
	CustomerID string `json:"customerId"`
	Action     string `json:"action"`
}

// OrderCreateResult summarises an orders/create dispatch. Conversions counts
// the distinct customers listed in Customers.
type OrderCreateResult struct {
	OrderID        string          `json:"orderId"`
	ProcessedItems []ProcessedItem `json:"processedItems"`
	Conversions    int             `json:"conversions"`
	Customers      []string        `json:"customers"`
}

// handleOrderCreate removes purchased products from every wishlist in the shop.
// A line item without a variant matches wishlist items of any variant.
func (p *Processor) handleOrderCreate(ctx context.Context, raw json.RawMessage, shop string) (*OrderCreateResult, error) {
	var order OrderPayload
	if err := decodePayload(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orders/create payload")
	}
	ctx = p.logg.WithField(ctx, "order_id", order.ID.String())

	result := &OrderCreateResult{
		OrderID:        order.ID.String(),
		ProcessedItems: []ProcessedItem{},
		Customers:      []string{},
	}
	for _, line := range order.LineItems {
		productID := line.ProductID.String()
		if productID == "" {
			continue
		}
		variantID := line.VariantID.String()

		for _, item := range p.wishlists.ListAllItemsForShop(shop) {
			if item.ProductID != productID || (variantID != "" && item.VariantID != variantID) {
				continue
			}
			if _, err := p.wishlists.RemoveItem(item.WishlistID, item.ProductID, item.VariantID); err != nil {
				p.logg.Warn(p.logg.WithField(ctx, "wishlist_id", item.WishlistID), "wishlist item removal skipped: "+err.Error())
				continue
			}
			result.ProcessedItems = append(result.ProcessedItems, ProcessedItem{
				ProductID:  productID,
				VariantID:  variantID,
				WishlistID: item.WishlistID,
				CustomerID: item.CustomerID,
				Action:     actionRemovedFromWishlist,
			})
		}
	}

	seen := make(map[string]struct{})
	for _, processed := range result.ProcessedItems {
		if _, ok := seen[processed.CustomerID]; ok {
			continue
		}
		seen[processed.CustomerID] = struct{}{}
		result.Customers = append(result.Customers, processed.CustomerID)

		err := p.conversions.NotifyConversion(ctx, Conversion{
			ShopID:     shop,
			CustomerID: processed.CustomerID,
			OrderID:    result.OrderID,
		})
		if err != nil {
			p.logg.Error(p.logg.WithField(ctx, "customer_id", processed.CustomerID), "conversion notification failed", err)
		}
	}

	result.Conversions = len(result.Customers)

	p.logg.Info(p.logg.WithField(ctx, "items_removed", len(result.ProcessedItems)), "order processed")
	return result, nil
}
