package webhooks

import (
	"context"
	"time"
)

// UninstallResult summarises an app/uninstalled dispatch.
type UninstallResult struct {
	Shop                  string    `json:"shop"`
	UninstalledAt         time.Time `json:"uninstalledAt"`
	DataCleanedUp         bool      `json:"dataCleanedUp"`
	WishlistsRemoved      int       `json:"wishlistsRemoved"`
	SubscriptionsRemoved  int       `json:"subscriptionsRemoved"`
	NotificationsRemoved  int       `json:"notificationsRemoved"`
	InventoryItemsRemoved int       `json:"inventoryItemsRemoved"`
}

// handleAppUninstall purges everything held for the shop.
func (p *Processor) handleAppUninstall(ctx context.Context, shop string) (*UninstallResult, error) {
	result := &UninstallResult{
		Shop:                  shop,
		UninstalledAt:         p.now().UTC(),
		DataCleanedUp:         true,
		WishlistsRemoved:      p.wishlists.PurgeShop(shop),
		SubscriptionsRemoved:  p.subscriptions.PurgeShop(shop),
		NotificationsRemoved:  p.notifications.PurgeShop(shop),
		InventoryItemsRemoved: p.inventory.PurgeShop(shop),
	}
	p.deduper.ForgetShop(shop)

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"wishlists_removed":     result.WishlistsRemoved,
		"subscriptions_removed": result.SubscriptionsRemoved,
		"notifications_removed": result.NotificationsRemoved,
	}), "shop data purged after uninstall")
	return result, nil
}
