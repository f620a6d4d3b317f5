package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/shopwish-backend/api/responses"
	"github.com/angelmondragon/shopwish-backend/api/validators"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
)

const shopQueryParam = "shop"

// RequireShop rejects storefront API calls that do not name a shop in the
// query string.
func RequireShop(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(shopQueryParam)))
			if shop == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Shop parameter required"))
				return
			}
			if err := validators.ValidateShopDomain(shop); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithShop(r.Context(), shop)
			if logg != nil {
				ctx = logg.WithShop(ctx, shop)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
