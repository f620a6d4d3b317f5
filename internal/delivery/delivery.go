package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
)

// ErrTimeout is returned when a delivery does not finish within its budget.
var ErrTimeout = pkgerrors.New(pkgerrors.CodeDelivery, "notification delivery timed out")

// ProductContext decorates alert emails with a product card.
type ProductContext struct {
	Title    string
	Handle   string
	ImageURL string
	Price    string
}

// WishlistContext decorates reminder emails.
type WishlistContext struct {
	Name      string
	ItemCount int
}

// Message is a single customer-facing notification.
type Message struct {
	CustomerID string
	ShopID     string
	Type       enums.NotificationType
	Subject    string
	Body       string
	Product    *ProductContext
	Wishlist   *WishlistContext
}

// Adapter hands a message to an outbound channel.
type Adapter interface {
	Send(ctx context.Context, msg Message) error
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc func(ctx context.Context, msg Message) error

func (f AdapterFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// TimeoutAdapter bounds every Send of the wrapped adapter. Adapters that ignore
// their context are abandoned once the budget runs out.
type TimeoutAdapter struct {
	next    Adapter
	timeout time.Duration
}

// WithTimeout wraps next; a non-positive timeout disables the bound.
func WithTimeout(next Adapter, timeout time.Duration) *TimeoutAdapter {
	return &TimeoutAdapter{next: next, timeout: timeout}
}

func (t *TimeoutAdapter) Send(ctx context.Context, msg Message) error {
	if t.next == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "delivery adapter not configured")
	}
	if t.timeout <= 0 {
		return t.next.Send(ctx, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("delivery panicked: %v", rec))
			}
		}()
		done <- t.next.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, ctx.Err(), "delivery cancelled")
	}
}
