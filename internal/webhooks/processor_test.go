package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/internal/wishlist"
	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShop = "demo.myshopify.com"

type recordingAdapter struct {
	mu       sync.Mutex
	messages []delivery.Message
	failFor  map[string]error
	block    bool
}

func (r *recordingAdapter) Send(ctx context.Context, msg delivery.Message) error {
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[msg.CustomerID]; ok {
		return err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingAdapter) sent() []delivery.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]delivery.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

type countingConversions struct {
	calls []Conversion
}

func (c *countingConversions) NotifyConversion(_ context.Context, conversion Conversion) error {
	c.calls = append(c.calls, conversion)
	return nil
}

type panickingResolver struct{}

func (panickingResolver) Resolve(context.Context, string, string) (*InventoryItem, error) {
	panic("resolver exploded")
}

type harness struct {
	subs        *subscriptions.Store
	wishlists   *wishlist.Store
	notes       *notifications.Store
	adapter     *recordingAdapter
	conversions *countingConversions
	registry    *prometheus.Registry
	processor   *Processor
	now         time.Time
}

func newHarness(t *testing.T, mutate func(*ProcessorParams)) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	h := &harness{
		subs:        subscriptions.NewStore(),
		wishlists:   wishlist.NewStore(),
		notes:       notifications.NewStore(),
		adapter:     &recordingAdapter{failFor: map[string]error{}},
		conversions: &countingConversions{},
		registry:    reg,
		now:         time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
	}
	h.wishlists.WithClock(func() time.Time { return h.now })
	params := ProcessorParams{
		Subscriptions:   h.subs,
		Wishlists:       h.wishlists,
		Notifications:   h.notes,
		Delivery:        h.adapter,
		Conversions:     h.conversions,
		Metrics:         metrics.NewWebhookMetrics(reg),
		DeliveryTimeout: time.Second,
		Clock:           func() time.Time { return h.now },
	}
	if mutate != nil {
		mutate(&params)
	}
	p, err := NewProcessor(params)
	require.NoError(t, err)
	h.processor = p
	return h
}

func (h *harness) dispatch(t *testing.T, topic, payload string) Result {
	t.Helper()
	return h.processor.Dispatch(context.Background(), topic, json.RawMessage(payload), testShop)
}

// counter reads a two-label counter whose first label is the topic or
// notification type and whose second is the outcome.
func (h *harness) counter(t *testing.T, name, first, outcome string) float64 {
	t.Helper()
	mfs, err := h.registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			values := map[string]string{}
			for _, lp := range m.GetLabel() {
				values[lp.GetName()] = lp.GetValue()
			}
			if values["outcome"] == outcome && (values["topic"] == first || values["type"] == first) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

const teeUpdate = `{
	"id": 1001,
	"title": "Tee",
	"handle": "tee",
	"images": [{"src": "https://cdn.example.com/tee.png"}],
	"variants": [
		{"id": 2001, "price": "10.00", "compare_at_price": "15.00", "inventory_quantity": 3, "inventory_item_id": 3001}
	]
}`

func TestNewProcessorRequiresStores(t *testing.T) {
	_, err := NewProcessor(ProcessorParams{})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
}

func TestDispatchUnknownTopic(t *testing.T) {
	h := newHarness(t, nil)
	res := h.dispatch(t, "carts/update", `{}`)

	assert.False(t, res.Success)
	assert.Equal(t, "Unknown webhook topic", res.Error)
	assert.Equal(t, pkgerrors.CodeUnknownTopic, res.Code)
	assert.Empty(t, h.adapter.sent())
}

func TestDispatchInvalidPayload(t *testing.T) {
	h := newHarness(t, nil)
	res := h.dispatch(t, "products/update", `{"id": [}`)

	assert.False(t, res.Success)
	assert.Equal(t, pkgerrors.CodeValidation, res.Code)
	assert.Equal(t, "invalid products/update payload", res.Error)
}

func TestProductUpdateRaisesEveryMatchingAlert(t *testing.T) {
	h := newHarness(t, nil)
	h.subs.Subscribe("c1", testShop, "1001", "2001", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("c1", testShop, "1001", "2001", enums.NotificationTypeLowStock)
	h.subs.Subscribe("c1", testShop, "1001", "2001", enums.NotificationTypePriceDrop)

	res := h.dispatch(t, "products/update", teeUpdate)
	require.True(t, res.Success, res.Error)

	out, ok := res.Result.(*ProductUpdateResult)
	require.True(t, ok)
	assert.Equal(t, "1001", out.ProductID)
	assert.Equal(t, 3, out.NotificationsSent)
	require.Len(t, out.Notifications, 3)

	messages := map[enums.NotificationType]string{}
	for _, rec := range out.Notifications {
		assert.True(t, rec.Sent)
		assert.NotNil(t, rec.SentAt)
		messages[rec.NotificationType] = rec.Message
	}
	assert.Equal(t, "Tee is back in stock!", messages[enums.NotificationTypeBackInStock])
	assert.Equal(t, "Only 3 left of Tee!", messages[enums.NotificationTypeLowStock])
	assert.Equal(t, "Price dropped for Tee! Save $5.00", messages[enums.NotificationTypePriceDrop])

	sent := h.adapter.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "Price Drop Alert", sent[2].Subject)
	assert.Equal(t, "The price for Tee has dropped by $5.00! Don't miss out on this deal.", sent[2].Body)
	require.NotNil(t, sent[0].Product)
	assert.Equal(t, "tee", sent[0].Product.Handle)
	assert.Equal(t, "10.00", sent[0].Product.Price)

	assert.Equal(t, 1.0, h.counter(t, "shopwish_webhook_dispatch_total", "products/update", metrics.OutcomeSuccess))
}

func TestProductUpdateWithoutStockOrDiscount(t *testing.T) {
	h := newHarness(t, nil)
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypePriceDrop)

	res := h.dispatch(t, "products/update", `{"id": 1001, "title": "Tee", "variants": [
		{"id": 2001, "price": "15.00", "compare_at_price": null, "inventory_quantity": 0}
	]}`)
	require.True(t, res.Success)
	assert.Equal(t, 0, res.Result.(*ProductUpdateResult).NotificationsSent)
	assert.Empty(t, h.adapter.sent())
}

func TestProductUpdateHonoursVariantWildcard(t *testing.T) {
	h := newHarness(t, nil)
	h.subs.Subscribe("any-variant", testShop, "1001", "", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("exact", testShop, "1001", "2001", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("other-variant", testShop, "1001", "2002", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("other-shop", "elsewhere.myshopify.com", "1001", "", enums.NotificationTypeBackInStock)

	res := h.dispatch(t, "products/update", `{"id": 1001, "title": "Tee", "variants": [
		{"id": 2001, "price": "10.00", "inventory_quantity": 50}
	]}`)
	require.True(t, res.Success)

	out := res.Result.(*ProductUpdateResult)
	require.Len(t, out.Notifications, 2)
	assert.Equal(t, "any-variant", out.Notifications[0].CustomerID)
	assert.Equal(t, "exact", out.Notifications[1].CustomerID)
}

func TestProductUpdateRespectsConfiguredThreshold(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.LowStockThreshold = 2 })
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeLowStock)

	res := h.dispatch(t, "products/update", teeUpdate)
	assert.Equal(t, 0, res.Result.(*ProductUpdateResult).NotificationsSent)
}

func TestDeliveryFailureLeavesRecordPending(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.failFor["c2"] = pkgerrors.New(pkgerrors.CodeDelivery, "mailbox full")
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("c2", testShop, "1001", "", enums.NotificationTypeBackInStock)

	res := h.dispatch(t, "products/update", teeUpdate)
	require.True(t, res.Success)

	out := res.Result.(*ProductUpdateResult)
	require.Len(t, out.Notifications, 2)
	assert.True(t, out.Notifications[0].Sent)
	assert.False(t, out.Notifications[1].Sent)

	pending := h.notes.ListPending(testShop)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].CustomerID)
	assert.Equal(t, 1.0, h.counter(t, "shopwish_notification_delivery_total", "back_in_stock", metrics.OutcomeFailure))
}

func TestDeliveryTimeoutCountsAsFailure(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.DeliveryTimeout = 20 * time.Millisecond })
	h.adapter.block = true
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)

	res := h.dispatch(t, "products/update", teeUpdate)
	require.True(t, res.Success)
	out := res.Result.(*ProductUpdateResult)
	require.Len(t, out.Notifications, 1)
	assert.False(t, out.Notifications[0].Sent)
	assert.Equal(t, 1.0, h.counter(t, "shopwish_notification_delivery_total", "back_in_stock", metrics.OutcomeTimeout))
}

func TestConcurrentDeliveryKeepsOrder(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.Concurrency = 4 })
	customers := []string{"c1", "c2", "c3", "c4", "c5", "c6"}
	for _, c := range customers {
		h.subs.Subscribe(c, testShop, "1001", "", enums.NotificationTypeBackInStock)
	}

	res := h.dispatch(t, "products/update", teeUpdate)
	out := res.Result.(*ProductUpdateResult)
	require.Len(t, out.Notifications, len(customers))
	for i, c := range customers {
		assert.Equal(t, c, out.Notifications[i].CustomerID)
		assert.True(t, out.Notifications[i].Sent)
	}
	assert.Len(t, h.adapter.sent(), len(customers))
}

func TestDedupWindowSuppressesRepeats(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.Deduper = notifications.NewDeduper(time.Hour, 100) })
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)

	first := h.dispatch(t, "products/update", teeUpdate)
	second := h.dispatch(t, "products/update", teeUpdate)
	assert.Equal(t, 1, first.Result.(*ProductUpdateResult).NotificationsSent)
	assert.Equal(t, 0, second.Result.(*ProductUpdateResult).NotificationsSent)
}

func TestDedupWindowReopensOnProcessorClock(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.Deduper = notifications.NewDeduper(time.Hour, 100) })
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)

	h.dispatch(t, "products/update", teeUpdate)
	h.now = h.now.Add(time.Hour)
	again := h.dispatch(t, "products/update", teeUpdate)
	assert.Equal(t, 1, again.Result.(*ProductUpdateResult).NotificationsSent)
	assert.Len(t, h.adapter.sent(), 2)
}

func TestWithoutDedupRepeatsAreDelivered(t *testing.T) {
	h := newHarness(t, nil)
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)

	h.dispatch(t, "products/update", teeUpdate)
	h.dispatch(t, "products/update", teeUpdate)
	assert.Len(t, h.adapter.sent(), 2)
}

func TestInventoryUpdateResolvesIndexedItems(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, "products/update", `{"id": 1001, "title": "Tee", "handle": "tee", "variants": [
		{"id": 2001, "price": "10.00", "inventory_quantity": 0, "inventory_item_id": 3001}
	]}`)
	h.subs.Subscribe("c1", testShop, "1001", "2001", enums.NotificationTypeBackInStock)
	h.subs.Subscribe("c2", testShop, "1001", "", enums.NotificationTypeLowStock)

	res := h.dispatch(t, "inventory_levels/update", `{"inventory_item_id": 3001, "location_id": 7, "available": 2}`)
	require.True(t, res.Success, res.Error)

	out := res.Result.(*InventoryUpdateResult)
	assert.True(t, out.Resolved)
	assert.Equal(t, 2, out.NotificationsSent)
	assert.Equal(t, "3001", out.InventoryLevel.InventoryItemID.String())
	assert.Equal(t, "Tee is back in stock!", out.Notifications[0].Message)
	assert.Equal(t, "Only 2 left of Tee!", out.Notifications[1].Message)
	assert.Equal(t, "2001", out.Notifications[1].VariantID)
}

func TestInventoryUpdateUnknownItem(t *testing.T) {
	h := newHarness(t, nil)
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)

	res := h.dispatch(t, "inventory_levels/update", `{"inventory_item_id": 9999, "available": 4}`)
	require.True(t, res.Success)
	out := res.Result.(*InventoryUpdateResult)
	assert.False(t, out.Resolved)
	assert.Equal(t, 0, out.NotificationsSent)

	res = h.dispatch(t, "inventory_levels/update", `{"inventory_item_id": 9999, "available": null}`)
	require.True(t, res.Success)
}

func TestDispatchRecoversHandlerPanics(t *testing.T) {
	h := newHarness(t, func(p *ProcessorParams) { p.Resolver = panickingResolver{} })

	res := h.dispatch(t, "inventory_levels/update", `{"inventory_item_id": 1, "available": 1}`)
	assert.False(t, res.Success)
	assert.Equal(t, pkgerrors.CodeInternal, res.Code)
	assert.Contains(t, res.Error, "resolver exploded")
	assert.Equal(t, 1.0, h.counter(t, "shopwish_webhook_dispatch_total", "inventory_levels/update", metrics.OutcomeFailure))
}

func TestOrderCreateRemovesPurchasedItems(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.wishlists.Create("c1", testShop, "")
	w2 := h.wishlists.Create("c2", testShop, "")
	w3 := h.wishlists.Create("c3", testShop, "")
	other := h.wishlists.Create("c1", "elsewhere.myshopify.com", "")
	_, _ = h.wishlists.AddItem(w1.ID, "1001", "2001")
	_, _ = h.wishlists.AddItem(w1.ID, "1002", "")
	_, _ = h.wishlists.AddItem(w2.ID, "1001", "")
	_, _ = h.wishlists.AddItem(w3.ID, "1001", "2002")
	_, _ = h.wishlists.AddItem(other.ID, "1001", "2001")

	res := h.dispatch(t, "orders/create", `{"id": 5001, "line_items": [
		{"product_id": 1001, "variant_id": 2001, "quantity": 1},
		{"product_id": null, "variant_id": null, "title": "Gift wrap", "quantity": 1}
	]}`)
	require.True(t, res.Success, res.Error)

	out := res.Result.(*OrderCreateResult)
	assert.Equal(t, "5001", out.OrderID)
	require.Len(t, out.ProcessedItems, 1)
	assert.Equal(t, ProcessedItem{
		ProductID:  "1001",
		VariantID:  "2001",
		WishlistID: w1.ID,
		CustomerID: "c1",
		Action:     "removed_from_wishlist",
	}, out.ProcessedItems[0])
	assert.Equal(t, 1, out.Conversions)
	assert.Equal(t, []string{"c1"}, out.Customers)
	require.Len(t, h.conversions.calls, 1)
	assert.Equal(t, "5001", h.conversions.calls[0].OrderID)

	got, _ := h.wishlists.Get(w1.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "1002", got.Items[0].ProductID)
	got, _ = h.wishlists.Get(w2.ID)
	assert.Len(t, got.Items, 1)
	got, _ = h.wishlists.Get(other.ID)
	assert.Len(t, got.Items, 1)
}

func TestOrderCreateWithoutVariantMatchesAnyVariant(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.wishlists.Create("c1", testShop, "")
	w2 := h.wishlists.Create("c2", testShop, "")
	_, _ = h.wishlists.AddItem(w1.ID, "1001", "2001")
	_, _ = h.wishlists.AddItem(w1.ID, "1001", "2002")
	_, _ = h.wishlists.AddItem(w2.ID, "1001", "")

	res := h.dispatch(t, "orders/create", `{"id": 5002, "line_items": [{"product_id": 1001, "variant_id": null}]}`)
	out := res.Result.(*OrderCreateResult)
	assert.Len(t, out.ProcessedItems, 3)
	assert.Equal(t, 2, out.Conversions)
	assert.Equal(t, []string{"c1", "c2"}, out.Customers)
	assert.Len(t, h.conversions.calls, 2)
	assert.Empty(t, h.wishlists.ListAllItemsForShop(testShop))
}

func TestAppUninstallPurgesShop(t *testing.T) {
	h := newHarness(t, nil)
	w := h.wishlists.Create("c1", testShop, "")
	_, _ = h.wishlists.AddItem(w.ID, "1001", "")
	h.wishlists.Create("c1", "elsewhere.myshopify.com", "")
	h.subs.Subscribe("c1", testShop, "1001", "", enums.NotificationTypeBackInStock)
	h.dispatch(t, "products/update", teeUpdate)

	res := h.dispatch(t, "app/uninstalled", `{"domain": "demo.myshopify.com"}`)
	require.True(t, res.Success)

	out := res.Result.(*UninstallResult)
	assert.True(t, out.DataCleanedUp)
	assert.Equal(t, testShop, out.Shop)
	assert.Equal(t, h.now, out.UninstalledAt)
	assert.Equal(t, 1, out.WishlistsRemoved)
	assert.Equal(t, 1, out.SubscriptionsRemoved)
	assert.Equal(t, 1, out.NotificationsRemoved)
	assert.Equal(t, 1, out.InventoryItemsRemoved)

	assert.Empty(t, h.subs.FindActiveForProduct(testShop, "1001", ""))
	assert.Equal(t, []string{"elsewhere.myshopify.com"}, h.wishlists.Shops())
}

func TestRunScheduledTasksSendsOneReminderPerCustomer(t *testing.T) {
	h := newHarness(t, nil)
	stale1 := h.wishlists.Create("c1", testShop, "Birthday")
	_, _ = h.wishlists.AddItem(stale1.ID, "1001", "")
	stale2 := h.wishlists.Create("c1", testShop, "Holiday")
	_, _ = h.wishlists.AddItem(stale2.ID, "1002", "")
	h.wishlists.Create("c3", testShop, "Empty")

	h.now = h.now.Add(8 * 24 * time.Hour)
	fresh := h.wishlists.Create("c2", testShop, "")
	_, _ = h.wishlists.AddItem(fresh.ID, "1001", "")

	res, err := h.processor.RunScheduledTasks(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersSent)
	assert.Equal(t, []string{"c1"}, res.Customers)

	sent := h.adapter.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, enums.NotificationTypeWishlistReminder, sent[0].Type)
	require.NotNil(t, sent[0].Wishlist)
	assert.Equal(t, "Birthday", sent[0].Wishlist.Name)
	assert.Equal(t, 1, sent[0].Wishlist.ItemCount)
}

func TestRunScheduledTasksSkipsFailedReminders(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.failFor["c1"] = errors.New("smtp down")
	w1 := h.wishlists.Create("c1", testShop, "")
	_, _ = h.wishlists.AddItem(w1.ID, "1001", "")
	w2 := h.wishlists.Create("c2", testShop, "")
	_, _ = h.wishlists.AddItem(w2.ID, "1001", "")
	h.now = h.now.Add(30 * 24 * time.Hour)

	res, err := h.processor.RunScheduledTasks(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, res.Customers)
	assert.Equal(t, 1, res.RemindersSent)
}

func TestRunScheduledTasksRemindsAtExactlyStaleWindow(t *testing.T) {
	h := newHarness(t, nil)
	w := h.wishlists.Create("c1", testShop, "")
	_, _ = h.wishlists.AddItem(w.ID, "1001", "")

	h.now = h.now.Add(7*24*time.Hour - time.Second)
	res, err := h.processor.RunScheduledTasks(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RemindersSent)

	h.now = h.now.Add(time.Second)
	res, err = h.processor.RunScheduledTasks(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersSent)
	assert.Equal(t, []string{"c1"}, res.Customers)
}
