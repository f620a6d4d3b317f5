package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// alert is one notification owed to one subscriber.
type alert struct {
	customerID string
	productID  string
	variantID  string
	kind       enums.NotificationType
	message    string
	emailBody  string
	product    *delivery.ProductContext
}

func alertsFor(subs []subscriptions.Subscription, kind enums.NotificationType, build func(sub subscriptions.Subscription) alert) []alert {
	out := make([]alert, 0)
	for _, sub := range subs {
		if sub.NotificationType != kind {
			continue
		}
		a := build(sub)
		a.kind = kind
		out = append(out, a)
	}
	return out
}

// deliverAll records every alert and fans the deliveries out with bounded
// concurrency. The returned records keep alert order and reflect the sent
// state after delivery. Alerts suppressed by the dedup window produce no
// record.
func (p *Processor) deliverAll(ctx context.Context, shop string, alerts []alert) []notifications.Record {
	records := make([]notifications.Record, 0, len(alerts))
	pending := make([]alert, 0, len(alerts))
	for _, a := range alerts {
		key := notifications.DedupKey{
			ShopID:     shop,
			CustomerID: a.customerID,
			ProductID:  a.productID,
			VariantID:  a.variantID,
			Type:       a.kind,
		}
		if !p.deduper.Allow(key) {
			p.logg.Debug(p.logg.WithField(ctx, "customer_id", a.customerID), "alert suppressed by dedup window")
			continue
		}
		records = append(records, p.notifications.Create(notifications.CreateParams{
			CustomerID:       a.customerID,
			ShopID:           shop,
			ProductID:        a.productID,
			VariantID:        a.variantID,
			NotificationType: a.kind,
			Message:          a.message,
		}))
		pending = append(pending, a)
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range records {
		g.Go(func() error {
			if sent, ok := p.deliver(ctx, records[i], pending[i]); ok {
				records[i] = sent
			}
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// deliver sends a single alert and marks its record sent on success. Delivery
// failures are logged and leave the record pending.
func (p *Processor) deliver(ctx context.Context, rec notifications.Record, a alert) (sent notifications.Record, ok bool) {
	ctx = p.logg.WithFields(ctx, map[string]any{
		"notification_id":   rec.ID,
		"customer_id":       rec.CustomerID,
		"notification_type": a.kind.String(),
	})
	defer func() {
		if r := recover(); r != nil {
			p.metrics.IncDelivery(a.kind.String(), metrics.OutcomeFailure)
			p.logg.Error(ctx, "notification delivery panicked", pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("%v", r)))
			sent, ok = rec, false
		}
	}()

	err := p.delivery.Send(ctx, delivery.Message{
		CustomerID: rec.CustomerID,
		ShopID:     rec.ShopID,
		Type:       a.kind,
		Subject:    a.kind.Subject(),
		Body:       a.emailBody,
		Product:    a.product,
	})
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, delivery.ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		p.metrics.IncDelivery(a.kind.String(), outcome)
		p.logg.Error(ctx, "notification delivery failed", err)
		return rec, false
	}

	p.metrics.IncDelivery(a.kind.String(), metrics.OutcomeSuccess)
	return p.notifications.MarkSent(rec.ID)
}

func backInStockText(title string) (message, email string) {
	return fmt.Sprintf("%s is back in stock!", title),
		fmt.Sprintf("Great news! %s is back in stock. Get it before it's gone again!", title)
}

func lowStockText(title string, qty int) (message, email string) {
	return fmt.Sprintf("Only %d left of %s!", qty, title),
		fmt.Sprintf("Hurry! Only %d left of %s. Order now before it's gone!", qty, title)
}

func priceDropText(title, savings string) (message, email string) {
	return fmt.Sprintf("Price dropped for %s! Save $%s", title, savings),
		fmt.Sprintf("The price for %s has dropped by $%s! Don't miss out on this deal.", title, savings)
}
