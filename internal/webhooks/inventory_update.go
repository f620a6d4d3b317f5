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

// InventoryUpdateResult summarises an inventory_levels/update dispatch.
type InventoryUpdateResult struct {
	InventoryLevel    InventoryLevelPayload  `json:"inventoryLevel"`
	Resolved          bool                   `json:"resolved"`
	NotificationsSent int                    `json:"notificationsSent"`
	Notifications     []notifications.Record `json:"notifications"`
}

func (p *Processor) handleInventoryUpdate(ctx context.Context, raw json.RawMessage, shop string) (*InventoryUpdateResult, error) {
	var level InventoryLevelPayload
	if err := decodePayload(raw, &level); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory_levels/update payload")
	}
	result := &InventoryUpdateResult{InventoryLevel: level, Notifications: []notifications.Record{}}

	ctx = p.logg.WithField(ctx, "inventory_item_id", level.InventoryItemID.String())
	if level.Available == nil {
		p.logg.Info(ctx, "inventory level without tracked quantity")
		return result, nil
	}
	available := *level.Available
	switch {
	case available == 0:
		p.logg.Info(ctx, "inventory item out of stock")
	case available > 0 && available <= p.lowStockThreshold:
		p.logg.Info(p.logg.WithField(ctx, "available", available), "inventory item low on stock")
	}

	item, err := p.resolver.Resolve(ctx, shop, level.InventoryItemID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve inventory item")
	}
	if item == nil {
		p.logg.Debug(ctx, "inventory item not resolved to a variant")
		return result, nil
	}
	result.Resolved = true

	subs := p.subscriptions.FindActiveForProduct(shop, item.ProductID, item.VariantID)
	title := item.Title
	if title == "" {
		title = "Product " + item.ProductID
	}
	card := &delivery.ProductContext{Title: title, Handle: item.Handle, ImageURL: item.ImageURL, Price: item.Price}
	base := func(sub subscriptions.Subscription) alert {
		return alert{customerID: sub.CustomerID, productID: item.ProductID, variantID: item.VariantID, product: card}
	}

	alerts := make([]alert, 0)
	if available > 0 {
		alerts = append(alerts, alertsFor(subs, enums.NotificationTypeBackInStock, func(sub subscriptions.Subscription) alert {
			a := base(sub)
			a.message, a.emailBody = backInStockText(title)
			return a
		})...)
	}
	if available > 0 && available <= p.lowStockThreshold {
		alerts = append(alerts, alertsFor(subs, enums.NotificationTypeLowStock, func(sub subscriptions.Subscription) alert {
			a := base(sub)
			a.message, a.emailBody = lowStockText(title, available)
			return a
		})...)
	}

	result.Notifications = p.deliverAll(ctx, shop, alerts)
	result.NotificationsSent = len(result.Notifications)
	return result, nil
}
