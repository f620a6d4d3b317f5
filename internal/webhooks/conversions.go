package webhooks

import (
	"context"

	"github.com/angelmondragon/shopwish-backend/pkg/logger"
)

// Conversion is a wishlisted product that a customer went on to buy.
type Conversion struct {
	ShopID     string
	CustomerID string
	OrderID    string
}

// ConversionNotifier is told once per customer whose wishlist an order
// touched.
type ConversionNotifier interface {
	NotifyConversion(ctx context.Context, conversion Conversion) error
}

// LogConversionNotifier records conversions in the service log.
type LogConversionNotifier struct {
	logg *logger.Logger
}

func NewLogConversionNotifier(logg *logger.Logger) *LogConversionNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogConversionNotifier{logg: logg}
}

func (n *LogConversionNotifier) NotifyConversion(ctx context.Context, conversion Conversion) error {
	ctx = n.logg.WithFields(ctx, map[string]any{
		"customer_id": conversion.CustomerID,
		"order_id":    conversion.OrderID,
	})
	n.logg.Info(ctx, "wishlist conversion")
	return nil
}
