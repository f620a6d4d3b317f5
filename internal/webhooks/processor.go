package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"github.com/angelmondragon/shopwish-backend/pkg/metrics"
)

const (
	defaultLowStockThreshold = 5
	defaultStaleAfter        = 7 * 24 * time.Hour
)

type subscriptionStore interface {
	FindActiveForProduct(shopID, productID, variantID string) []subscriptions.Subscription
	PurgeShop(shopID string) int
}

type wishlistStore interface {
	Get(wishlistID string) (wishlist.Wishlist, bool)
	RemoveItem(wishlistID, productID, variantID string) (wishlist.Wishlist, error)
	ListAllItemsForShop(shopID string) []wishlist.ItemRef
	PurgeShop(shopID string) int
}

type notificationStore interface {
	Create(params notifications.CreateParams) notifications.Record
	MarkSent(id string) (notifications.Record, bool)
	PurgeShop(shopID string) int
}

// Result is the envelope returned for every dispatched webhook.
type Result struct {
	Success bool           `json:"success"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    pkgerrors.Code `json:"-"`
}

// ProcessorParams wires the webhook processor. Delivery, Subscriptions,
// Wishlists and Notifications are required; everything else has a default.
type ProcessorParams struct {
	Subscriptions subscriptionStore
	Wishlists     wishlistStore
	Notifications notificationStore
	Delivery      delivery.Adapter
	Deduper       *notifications.Deduper
	Inventory     *InventoryIndex
	Resolver      InventoryResolver
	Conversions   ConversionNotifier
	Metrics       *metrics.WebhookMetrics
	Logger        *logger.Logger

	LowStockThreshold  int
	DeliveryTimeout    time.Duration
	Concurrency        int
	ReminderStaleAfter time.Duration
	Clock              func() time.Time
}

// Processor turns Shopify webhooks into customer notifications and wishlist
// maintenance.
type Processor struct {
	subscriptions subscriptionStore
	wishlists     wishlistStore
	notifications notificationStore
	delivery      delivery.Adapter
	deduper       *notifications.Deduper
	inventory     *InventoryIndex
	resolver      InventoryResolver
	conversions   ConversionNotifier
	metrics       *metrics.WebhookMetrics
	logg          *logger.Logger

	lowStockThreshold int
	concurrency       int
	staleAfter        time.Duration
	now               func() time.Time
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription store required")
	}
	if params.Wishlists == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist store required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification store required")
	}
	if params.Delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "delivery adapter required")
	}

	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	inventory := params.Inventory
	if inventory == nil {
		inventory = NewInventoryIndex()
	}
	var resolver InventoryResolver = inventory
	if params.Resolver != nil {
		resolver = params.Resolver
	}
	var conversions ConversionNotifier = NewLogConversionNotifier(logg)
	if params.Conversions != nil {
		conversions = params.Conversions
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	staleAfter := params.ReminderStaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}

	return &Processor{
		subscriptions:     params.Subscriptions,
		wishlists:         params.Wishlists,
		notifications:     params.Notifications,
		delivery:          delivery.WithTimeout(params.Delivery, params.DeliveryTimeout),
		deduper:           params.Deduper.WithClock(now),
		inventory:         inventory,
		resolver:          resolver,
		conversions:       conversions,
		metrics:           params.Metrics,
		logg:              logg,
		lowStockThreshold: threshold,
		concurrency:       concurrency,
		staleAfter:        staleAfter,
		now:               now,
	}, nil
}

// Dispatch routes a webhook to its topic handler. It never returns an error:
// failures, unknown topics and handler panics all come back as a failure
// envelope.
func (p *Processor) Dispatch(ctx context.Context, topic string, payload json.RawMessage, shop string) (result Result) {
	ctx = p.logg.WithTopic(p.logg.WithShop(ctx, shop), topic)

	parsed := ParseTopic(topic)
	if parsed == TopicUnknown {
		err := pkgerrors.New(pkgerrors.CodeUnknownTopic, pkgerrors.MetadataFor(pkgerrors.CodeUnknownTopic).PublicMessage)
		p.logg.Warn(ctx, "unknown webhook topic")
		p.metrics.ObserveDispatch(topic, metrics.OutcomeUnknown, 0)
		return failure(err)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("webhook handler panicked: %v", rec))
			p.logg.Error(ctx, "webhook handler panicked", err)
			p.metrics.ObserveDispatch(topic, metrics.OutcomeFailure, time.Since(start))
			result = failure(err)
		}
	}()

	var (
		out any
		err error
	)
	switch parsed {
	case TopicProductsUpdate:
		out, err = p.handleProductUpdate(ctx, payload, shop)
	case TopicInventoryLevelsUpdate:
		out, err = p.handleInventoryUpdate(ctx, payload, shop)
	case TopicOrdersCreate:
		out, err = p.handleOrderCreate(ctx, payload, shop)
	case TopicAppUninstalled:
		out, err = p.handleAppUninstall(ctx, shop)
	}
	if err != nil {
		p.logg.Error(ctx, "webhook handler failed", err)
		p.metrics.ObserveDispatch(topic, metrics.OutcomeFailure, time.Since(start))
		return failure(err)
	}

	p.metrics.ObserveDispatch(topic, metrics.OutcomeSuccess, time.Since(start))
	return Result{Success: true, Result: out}
}

func failure(err error) Result {
	if typed := pkgerrors.As(err); typed != nil {
		return Result{Success: false, Error: typed.Message(), Code: typed.Code()}
	}
	return Result{Success: false, Error: err.Error(), Code: pkgerrors.CodeInternal}
}
