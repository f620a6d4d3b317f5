package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopwish-backend/api/middleware"
	"github.com/angelmondragon/shopwish-backend/api/responses"
	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"github.com/angelmondragon/shopwish-backend/pkg/types"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, payload json.RawMessage, shop string) webhooks.Result
}

type ReminderRunner interface {
	RunScheduledTasks(ctx context.Context, shop string) (*webhooks.ReminderResult, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// ShopifyWebhook handles POST /webhooks/{resource}/{event}. Unknown topics are
// acknowledged with 200 so Shopify stops retrying; handler failures return 500
// and clear the delivery marker so the retry is processed again.
func ShopifyWebhook(dispatcher Dispatcher, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		topic := topicFromPath(r)
		shop := middleware.ShopFromContext(ctx)
		deliveryID := strings.TrimSpace(r.Header.Get(middleware.HeaderWebhookID))

		if guard != nil && deliveryID != "" {
			seen, err := guard.CheckAndMark(ctx, deliveryID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if seen {
				if logg != nil {
					logg.Info(logg.WithField(ctx, "webhook_id", deliveryID), "webhook.duplicate_skipped")
				}
				responses.WriteWebhook(w, http.StatusOK, types.WebhookEnvelope{Success: true})
				return
			}
		}

		result := dispatcher.Dispatch(ctx, topic, payload, shop)
		switch {
		case result.Success:
			responses.WriteWebhook(w, http.StatusOK, envelope(result))
		case result.Code == pkgerrors.CodeUnknownTopic:
			responses.WriteWebhook(w, http.StatusOK, envelope(result))
		default:
			if guard != nil && deliveryID != "" {
				if err := guard.Delete(ctx, deliveryID); err != nil && logg != nil {
					logg.Error(ctx, "webhook.guard_release_failed", err)
				}
			}
			responses.WriteWebhook(w, http.StatusInternalServerError, envelope(result))
		}
	}
}

// ProcessWebhook runs a topic handler on demand. It always answers 200 and
// reports the outcome in the envelope.
func ProcessWebhook(dispatcher Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		topic := topicFromPath(r)
		if logg != nil {
			logg.Info(logg.WithTopic(ctx, topic), "webhook.manual_process")
		}
		result := dispatcher.Dispatch(ctx, topic, payload, middleware.ShopFromContext(ctx))
		responses.WriteWebhook(w, http.StatusOK, envelope(result))
	}
}

// ScheduledTasks runs the wishlist reminder pass for the {shop} path param.
func ScheduledTasks(runner ReminderRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		shop := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "shop")))
		if shop == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Shop parameter required"))
			return
		}
		if runner == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reminder runner unavailable"))
			return
		}

		result, err := runner.RunScheduledTasks(ctx, shop)
		if err != nil {
			if logg != nil {
				logg.Error(logg.WithShop(ctx, shop), "scheduled tasks failed", err)
			}
			responses.WriteWebhook(w, http.StatusInternalServerError, types.WebhookEnvelope{Success: false, Error: errorMessage(err)})
			return
		}
		responses.WriteWebhook(w, http.StatusOK, types.WebhookEnvelope{Success: true, Result: result})
	}
}

// VerifyEndpoints lists the webhook routes served by this instance.
func VerifyEndpoints() http.HandlerFunc {
	endpoints := []string{
		"/webhooks/products/update",
		"/webhooks/inventory_levels/update",
		"/webhooks/orders/create",
		"/webhooks/app/uninstalled",
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteWebhook(w, http.StatusOK, types.WebhookEnvelope{
			Success: true,
			Result: map[string]any{
				"message":   "Webhook endpoints are active",
				"endpoints": endpoints,
			},
		})
	}
}

func topicFromPath(r *http.Request) string {
	return chi.URLParam(r, "resource") + "/" + chi.URLParam(r, "event")
}

func envelope(result webhooks.Result) types.WebhookEnvelope {
	return types.WebhookEnvelope{
		Success: result.Success,
		Result:  result.Result,
		Error:   result.Error,
	}
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
