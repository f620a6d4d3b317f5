package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopwish-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/shopwish-backend/api/controllers/webhooks"
	"github.com/angelmondragon/shopwish-backend/api/middleware"
	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/pkg/config"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"github.com/angelmondragon/shopwish-backend/pkg/redis"
)

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	RedisPinger   redis.Pinger
	KeyValues     redis.KeyValueStore
	Gatherer      prometheus.Gatherer
	Wishlists     controllers.WishlistStore
	Subscriptions controllers.SubscriptionStore
	Notifications controllers.PendingNotifications
	Processor     *webhooks.Processor
	WebhookGuard  *webhooks.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.RedisPinger))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/verify", webhookcontrollers.VerifyEndpoints())
		r.With(middleware.RequireBearer(cfg.Shopify.SchedulerToken, logg)).
			Post("/scheduled/{shop}", webhookcontrollers.ScheduledTasks(deps.Processor, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.VerifyShopifyWebhook(cfg.Shopify.WebhookSecret, logg))
			r.Post("/process/{resource}/{event}", webhookcontrollers.ProcessWebhook(deps.Processor, logg))
			r.Post("/{resource}/{event}", webhookcontrollers.ShopifyWebhook(deps.Processor, deps.WebhookGuard, logg))
		})
	})

	r.Route("/api/wishlist", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
		r.Use(middleware.RequireShop(logg))
		r.Use(middleware.Idempotency(deps.KeyValues, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/subscribe", controllers.NotificationSubscribe(deps.Subscriptions, logg))
			r.Post("/unsubscribe", controllers.NotificationUnsubscribe(deps.Subscriptions, logg))
			r.Get("/customer/{customerId}", controllers.NotificationCustomerSubscriptions(deps.Subscriptions, logg))
			r.Get("/pending", controllers.NotificationPending(deps.Notifications, logg))
		})

		r.Get("/customer/{customerId}", controllers.WishlistCustomerList(deps.Wishlists, logg))
		r.Post("/create", controllers.WishlistCreate(deps.Wishlists, logg))
		r.Post("/{wishlistId}/items", controllers.WishlistAddItem(deps.Wishlists, logg))
		r.Delete("/{wishlistId}/items", controllers.WishlistRemoveItem(deps.Wishlists, logg))
		r.Get("/{wishlistId}", controllers.WishlistGet(deps.Wishlists, logg))
	})

	return r
}
