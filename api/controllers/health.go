package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/shopwish-backend/api/responses"
	"github.com/angelmondragon/shopwish-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"github.com/angelmondragon/shopwish-backend/pkg/redis"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopwish-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Redis when one is configured. A nil pinger means the
// service runs on the in-process store and is always ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisPinger redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopwish-Env", cfg.App.Env)

		checks := map[string]string{"redis": "disabled"}
		if redisPinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := redisPinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable").WithDetails(map[string]string{"redis": "down"}))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
