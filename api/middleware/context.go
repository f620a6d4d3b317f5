package middleware

import "context"

type contextKey string

const ctxShop contextKey = "shop"

// ShopFromContext returns the shop domain attached by RequireShop or
// VerifyShopifyWebhook.
func ShopFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxShop).(string); ok {
		return v
	}
	return ""
}

// WithShop injects the shop domain into the context for downstream handlers.
func WithShop(ctx context.Context, shop string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShop, shop)
}
