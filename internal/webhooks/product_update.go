package webhooks

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
)

// ProductUpdateResult summarises a products/update dispatch.
type ProductUpdateResult struct {
	ProductID         string                 `json:"productId"`
	NotificationsSent int                    `json:"notificationsSent"`
	Notifications     []notifications.Record `json:"notifications"`
}

func (p *Processor) handleProductUpdate(ctx context.Context, raw json.RawMessage, shop string) (*ProductUpdateResult, error) {
	var product ProductPayload
	if err := decodePayload(raw, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid products/update payload")
	}
	p.inventory.IndexProduct(shop, product)

	alerts := make([]alert, 0)
	for _, variant := range product.Variants {
		alerts = append(alerts, p.variantAlerts(shop, product, variant)...)
	}
	records := p.deliverAll(ctx, shop, alerts)

	ctx = p.logg.WithFields(ctx, map[string]any{
		"product_id":         product.ID.String(),
		"notifications_sent": len(records),
	})
	p.logg.Info(ctx, "product update processed")

	return &ProductUpdateResult{
		ProductID:         product.ID.String(),
		NotificationsSent: len(records),
		Notifications:     records,
	}, nil
}

// variantAlerts evaluates the three alert conditions independently; one
// variant can raise back-in-stock, low-stock and price-drop alerts at once.
func (p *Processor) variantAlerts(shop string, product ProductPayload, variant ProductVariant) []alert {
	productID := product.ID.String()
	variantID := variant.ID.String()
	subs := p.subscriptions.FindActiveForProduct(shop, productID, variantID)
	if len(subs) == 0 {
		return nil
	}

	card := &delivery.ProductContext{
		Title:    product.Title,
		Handle:   product.Handle,
		ImageURL: product.imageURL(),
		Price:    variant.Price.StringFixed(2),
	}
	base := func(sub subscriptions.Subscription) alert {
		return alert{customerID: sub.CustomerID, productID: productID, variantID: variantID, product: card}
	}

	qty := variant.InventoryQuantity
	out := make([]alert, 0)
	if qty > 0 {
		out = append(out, alertsFor(subs, enums.NotificationTypeBackInStock, func(sub subscriptions.Subscription) alert {
			a := base(sub)
			a.message, a.emailBody = backInStockText(product.Title)
			return a
		})...)
	}
	if qty > 0 && qty <= p.lowStockThreshold {
		out = append(out, alertsFor(subs, enums.NotificationTypeLowStock, func(sub subscriptions.Subscription) alert {
			a := base(sub)
			a.message, a.emailBody = lowStockText(product.Title, qty)
			return a
		})...)
	}
	if variant.CompareAtPrice.Valid && variant.Price.LessThan(variant.CompareAtPrice.Decimal) {
		savings := variant.CompareAtPrice.Decimal.Sub(variant.Price).StringFixed(2)
		out = append(out, alertsFor(subs, enums.NotificationTypePriceDrop, func(sub subscriptions.Subscription) alert {
			a := base(sub)
			a.message, a.emailBody = priceDropText(product.Title, savings)
			return a
		})...)
	}
	return out
}
