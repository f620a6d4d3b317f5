package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/shopwish-backend/api/routes"
	"github.com/angelmondragon/shopwish-backend/internal/cron"
	"github.com/angelmondragon/shopwish-backend/internal/delivery"
	"github.com/angelmondragon/shopwish-backend/internal/notifications"
	"github.com/angelmondragon/shopwish-backend/internal/subscriptions"
	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/internal/wishlist"
	"github.com/angelmondragon/shopwish-backend/pkg/config"
	"github.com/angelmondragon/shopwish-backend/pkg/instance"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"github.com/angelmondragon/shopwish-backend/pkg/metrics"
	"github.com/angelmondragon/shopwish-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		kv     redis.KeyValueStore
		pinger redis.Pinger
		lock   cron.Lock
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redis.LockKey("scheduler", cfg.App.Env), 0)
		if err != nil {
			return err
		}
		kv, pinger, lock = redisClient, redisClient, redisLock
	} else {
		logg.Warn(ctx, "redis not configured, using in-process idempotency and locks")
		kv, lock = redis.NewMemoryStore(), &cron.LocalLock{}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	adapter, err := newDeliveryAdapter(cfg, logg)
	if err != nil {
		return err
	}

	subs := subscriptions.NewStore()
	lists := wishlist.NewStore()
	notes := notifications.NewStore()

	processor, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Subscriptions:      subs,
		Wishlists:          lists,
		Notifications:      notes,
		Delivery:           adapter,
		Deduper:            notifications.NewDeduper(cfg.Notifications.DedupWindow, cfg.Notifications.DedupCapacity),
		Metrics:            metrics.NewWebhookMetrics(registry),
		Logger:             logg,
		LowStockThreshold:  cfg.Notifications.LowStockThreshold,
		DeliveryTimeout:    cfg.Delivery.Timeout,
		Concurrency:        cfg.Delivery.Concurrency,
		ReminderStaleAfter: cfg.Reminders.StaleAfter,
	})
	if err != nil {
		return err
	}
	guard, err := webhooks.NewIdempotencyGuard(kv, cfg.Webhooks.IdempotencyTTL, webhooks.IdempotencyScope)
	if err != nil {
		return err
	}

	scheduler, err := newScheduler(cfg, logg, lock, registry, processor, lists, notes)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			RedisPinger:   pinger,
			KeyValues:     kv,
			Gatherer:      registry,
			Wishlists:     lists,
			Subscriptions: subs,
			Notifications: notes,
			Processor:     processor,
			WebhookGuard:  guard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down gracefully")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newDeliveryAdapter(cfg *config.Config, logg *logger.Logger) (delivery.Adapter, error) {
	if !cfg.Sendgrid.Enabled() {
		logg.Warn(context.Background(), "sendgrid not configured, notifications will only be logged")
		return delivery.NewLogAdapter(logg), nil
	}
	return delivery.NewSendgridAdapter(delivery.SendgridParams{Config: cfg.Sendgrid})
}

func newScheduler(
	cfg *config.Config,
	logg *logger.Logger,
	lock cron.Lock,
	reg prometheus.Registerer,
	processor *webhooks.Processor,
	lists *wishlist.Store,
	notes *notifications.Store,
) (*cron.Service, error) {
	reminders, err := cron.NewReminderJob(cron.ReminderJobParams{
		Logger: logg,
		Runner: processor,
		Shops:  lists,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:    logg,
		Store:     notes,
		Retention: cfg.Notifications.Retention,
	})
	if err != nil {
		return nil, err
	}
	registry, err := cron.NewRegistry(reminders, cleanup)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Schedule: cfg.Reminders.Schedule,
	})
}
