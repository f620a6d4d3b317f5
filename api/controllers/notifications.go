package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopwish-backend/api/middleware"
	"github.com/angelmondragon/shopwish-backend/api/responses"
	"github.com/angelmondragon/shopwish-backend/api/validators"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
)

const (
	defaultPendingLimit = 100
	maxPendingLimit     = 1000
)

type SubscriptionStore interface {
	Subscribe(customerID, shopID, productID, variantID string, notificationType enums.NotificationType) subscriptions.Subscription
	Unsubscribe(id string) (subscriptions.Subscription, bool)
	Get(id string) (subscriptions.Subscription, bool)
	ListActiveForCustomer(customerID, shopID string) []subscriptions.Subscription
}

type PendingNotifications interface {
	ListPending(shopID string) []notifications.Record
}

type subscribePayload struct {
	CustomerID       webhooks.ID `json:"customerId" validate:"required"`
	ProductID        webhooks.ID `json:"productId" validate:"required"`
	VariantID        webhooks.ID `json:"variantId"`
	NotificationType string      `json:"notificationType"`
}

type unsubscribePayload struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

// NotificationSubscribe registers (or re-activates) a product alert. An empty
// notificationType means back_in_stock.
func NotificationSubscribe(store SubscriptionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload subscribePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		kind, err := enums.ParseNotificationType(strings.TrimSpace(payload.NotificationType))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type").WithDetails(map[string]string{"notificationType": "must be one of back_in_stock, price_drop, low_stock"}))
			return
		}

		sub := store.Subscribe(
			payload.CustomerID.String(),
			middleware.ShopFromContext(ctx),
			payload.ProductID.String(),
			payload.VariantID.String(),
			kind,
		)
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{"subscription_id": sub.ID, "notification_type": sub.NotificationType}), "subscription.created")
		}
		responses.WriteSuccess(w, map[string]any{"subscription": sub})
	}
}

// NotificationUnsubscribe deactivates a subscription owned by the calling shop.
func NotificationUnsubscribe(store SubscriptionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload unsubscribePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		existing, ok := store.Get(payload.SubscriptionID)
		if !ok || existing.ShopID != middleware.ShopFromContext(ctx) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Subscription not found"))
			return
		}
		sub, _ := store.Unsubscribe(payload.SubscriptionID)
		responses.WriteSuccess(w, map[string]any{"subscription": sub})
	}
}

func NotificationCustomerSubscriptions(store SubscriptionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := strings.TrimSpace(chi.URLParam(r, "customerId"))
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Customer ID is required"))
			return
		}
		subs := store.ListActiveForCustomer(customerID, middleware.ShopFromContext(r.Context()))
		responses.WriteSuccess(w, map[string]any{"subscriptions": subs})
	}
}

// NotificationPending lists records whose delivery has not succeeded yet,
// oldest first, for an external re-send sweep.
func NotificationPending(store PendingNotifications, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultPendingLimit, 1, maxPendingLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pending := store.ListPending(middleware.ShopFromContext(r.Context()))
		if len(pending) > limit {
			pending = pending[:limit]
		}
		responses.WriteSuccess(w, map[string]any{"notifications": pending, "count": len(pending)})
	}
}
