package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopwish-backend/api/middleware"
	"github.com/angelmondragon/shopwish-backend/api/responses"
	"github.com/angelmondragon/shopwish-backend/api/validators"
	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
)

// WishlistStore is the storefront surface of the wishlist store.
type WishlistStore interface {
	Create(customerID, shopID, name string) wishlist.Wishlist
	AddItem(wishlistID, productID, variantID string) (wishlist.Wishlist, error)
	RemoveItem(wishlistID, productID, variantID string) (wishlist.Wishlist, error)
	Get(wishlistID string) (wishlist.Wishlist, bool)
	ListForCustomer(customerID, shopID string) []wishlist.Wishlist
}

type createWishlistPayload struct {
	CustomerID webhooks.ID `json:"customerId" validate:"required"`
	Name       string      `json:"name" validate:"max=255"`
}

type wishlistItemPayload struct {
	ProductID webhooks.ID `json:"productId" validate:"required"`
	VariantID webhooks.ID `json:"variantId"`
}

var errWishlistNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "Wishlist not found")

// WishlistCustomerList returns every wishlist the customer owns in the shop.
func WishlistCustomerList(store WishlistStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := strings.TrimSpace(chi.URLParam(r, "customerId"))
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Customer ID is required"))
			return
		}
		lists := store.ListForCustomer(customerID, middleware.ShopFromContext(r.Context()))
		responses.WriteSuccess(w, map[string]any{"wishlists": lists})
	}
}

func WishlistCreate(store WishlistStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload createWishlistPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created := store.Create(payload.CustomerID.String(), middleware.ShopFromContext(ctx), strings.TrimSpace(payload.Name))
		if logg != nil {
			logg.Info(logg.WithField(ctx, "wishlist_id", created.ID), "wishlist.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"wishlist": created})
	}
}

func WishlistAddItem(store WishlistStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		wishlistID, ok := ownedWishlist(w, r, store, logg)
		if !ok {
			return
		}
		var payload wishlistItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := store.AddItem(wishlistID, payload.ProductID.String(), payload.VariantID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wishlist": updated})
	}
}

// WishlistRemoveItem removes the exact product/variant pair. Removing an item
// that is not present is not an error.
func WishlistRemoveItem(store WishlistStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		wishlistID, ok := ownedWishlist(w, r, store, logg)
		if !ok {
			return
		}
		var payload wishlistItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := store.RemoveItem(wishlistID, payload.ProductID.String(), payload.VariantID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wishlist": updated})
	}
}

func WishlistGet(store WishlistStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wishlistID, ok := ownedWishlist(w, r, store, logg)
		if !ok {
			return
		}
		found, _ := store.Get(wishlistID)
		responses.WriteSuccess(w, map[string]any{"wishlist": found})
	}
}

// ownedWishlist resolves the {wishlistId} path param and hides wishlists that
// belong to another shop behind a 404.
func ownedWishlist(w http.ResponseWriter, r *http.Request, store WishlistStore, logg *logger.Logger) (string, bool) {
	wishlistID := strings.TrimSpace(chi.URLParam(r, "wishlistId"))
	found, ok := store.Get(wishlistID)
	if !ok || found.ShopID != middleware.ShopFromContext(r.Context()) {
		responses.WriteError(r.Context(), logg, w, errWishlistNotFound)
		return "", false
	}
	return wishlistID, true
}
