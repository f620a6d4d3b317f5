package delivery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/shopwish-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender is the subset of the SendGrid client used for delivery.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridParams wires the email adapter. Client defaults to the SendGrid API
// client built from Config.APIKey.
type SendgridParams struct {
	Config config.SendgridConfig
	Client Sender
}

// SendgridAdapter renders notifications as HTML email and sends them through
// SendGrid.
type SendgridAdapter struct {
	client       Sender
	from         *mail.Email
	emailPattern string
	renderer     *renderer
}

func NewSendgridAdapter(params SendgridParams) (*SendgridAdapter, error) {
	cfg := params.Config
	if cfg.DefaultFrom == "" {
		return nil, fmt.Errorf("incomplete config: sender address required")
	}
	client := params.Client
	if client == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("incomplete config: sendgrid api key required")
		}
		client = sendgrid.NewSendClient(cfg.APIKey)
	}
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	pattern := cfg.CustomerEmailPattern
	if pattern == "" {
		pattern = "customer%s@example.com"
	}
	return &SendgridAdapter{
		client:       client,
		from:         mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		emailPattern: pattern,
		renderer:     r,
	}, nil
}

// CustomerEmail resolves the recipient address for a customer id.
func (a *SendgridAdapter) CustomerEmail(customerID string) string {
	return fmt.Sprintf(a.emailPattern, customerID)
}

func (a *SendgridAdapter) Send(ctx context.Context, msg Message) error {
	html, err := a.renderer.render(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render notification email")
	}

	to := mail.NewEmail("", a.CustomerEmail(msg.CustomerID))
	subject := fmt.Sprintf("%s - %s", msg.Subject, msg.ShopID)
	email := mail.NewSingleEmail(a.from, subject, to, msg.Body, html)

	resp, err := a.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sendgrid send failed")
	}
	if resp != nil && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		return pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("sendgrid returned status %d", resp.StatusCode)).
			WithDetails(resp.Body)
	}
	return nil
}
