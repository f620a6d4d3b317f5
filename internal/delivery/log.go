package delivery

import (
	"context"

	"github.com/angelmondragon/shopwish-backend/pkg/logger"
)

// LogAdapter writes notifications to the service log instead of sending them.
// It is the fallback when no email provider is configured.
type LogAdapter struct {
	logg *logger.Logger
}

func NewLogAdapter(logg *logger.Logger) *LogAdapter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogAdapter{logg: logg}
}

func (a *LogAdapter) Send(ctx context.Context, msg Message) error {
	ctx = a.logg.WithFields(ctx, map[string]any{
		"shop":              msg.ShopID,
		"customer_id":       msg.CustomerID,
		"notification_type": msg.Type.String(),
		"subject":           msg.Subject,
	})
	a.logg.Info(ctx, msg.Body)
	return nil
}
