package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/wishlist"
	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	"github.com/angelmondragon/shopwish-backend/pkg/metrics"
)

// ReminderResult summarises a scheduled reminder run for one shop.
type ReminderResult struct {
	RemindersSent int      `json:"remindersSent"`
	Customers     []string `json:"customers"`
}

// RunScheduledTasks sends at most one reminder per customer whose wishlist has
// not changed within the stale window. Customers are visited in the order
// their first wishlist item appears; the first stale wishlist found for a
// customer is the one referenced.
func (p *Processor) RunScheduledTasks(ctx context.Context, shop string) (*ReminderResult, error) {
	ctx = p.logg.WithShop(ctx, shop)
	cutoff := p.now().Add(-p.staleAfter)

	customers := make([]string, 0)
	byCustomer := make(map[string][]wishlist.ItemRef)
	for _, item := range p.wishlists.ListAllItemsForShop(shop) {
		if _, ok := byCustomer[item.CustomerID]; !ok {
			customers = append(customers, item.CustomerID)
		}
		byCustomer[item.CustomerID] = append(byCustomer[item.CustomerID], item)
	}

	result := &ReminderResult{Customers: []string{}}
	for _, customerID := range customers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		stale, ok := p.firstStaleWishlist(byCustomer[customerID], cutoff)
		if !ok {
			continue
		}
		if err := p.sendReminder(ctx, shop, customerID, stale); err != nil {
			continue
		}
		result.Customers = append(result.Customers, customerID)
	}
	result.RemindersSent = len(result.Customers)

	p.logg.Info(p.logg.WithField(ctx, "reminders_sent", result.RemindersSent), "wishlist reminders processed")
	return result, nil
}

func (p *Processor) firstStaleWishlist(items []wishlist.ItemRef, cutoff time.Time) (wishlist.Wishlist, bool) {
	checked := make(map[string]struct{})
	for _, item := range items {
		if _, ok := checked[item.WishlistID]; ok {
			continue
		}
		checked[item.WishlistID] = struct{}{}
		w, ok := p.wishlists.Get(item.WishlistID)
		if ok && !w.UpdatedAt.After(cutoff) {
			return w, true
		}
	}
	return wishlist.Wishlist{}, false
}

func (p *Processor) sendReminder(ctx context.Context, shop, customerID string, w wishlist.Wishlist) error {
	kind := enums.NotificationTypeWishlistReminder
	ctx = p.logg.WithFields(ctx, map[string]any{"customer_id": customerID, "wishlist_id": w.ID})
	err := p.delivery.Send(ctx, delivery.Message{
		CustomerID: customerID,
		ShopID:     shop,
		Type:       kind,
		Subject:    kind.Subject(),
		Body:       fmt.Sprintf("You have %d item(s) in your wishlist %q. Don't let them get away!", len(w.Items), w.Name),
		Wishlist:   &delivery.WishlistContext{Name: w.Name, ItemCount: len(w.Items)},
	})
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, delivery.ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		p.metrics.IncDelivery(kind.String(), outcome)
		p.logg.Error(ctx, "wishlist reminder failed", err)
		return err
	}
	p.metrics.IncDelivery(kind.String(), metrics.OutcomeSuccess)
	return nil
}
