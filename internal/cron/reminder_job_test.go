package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"go.uber.org/multierr"
)

type fakeReminderRunner struct {
	failFor map[string]error
	shops   []string
}

func (f *fakeReminderRunner) RunScheduledTasks(_ context.Context, shop string) (*webhooks.ReminderResult, error) {
	f.shops = append(f.shops, shop)
	if err, ok := f.failFor[shop]; ok {
		return nil, err
	}
	return &webhooks.ReminderResult{RemindersSent: 1, Customers: []string{"c1"}}, nil
}

type staticShops []string

func (s staticShops) Shops() []string { return s }

func TestReminderJobVisitsEveryShop(t *testing.T) {
	runner := &fakeReminderRunner{failFor: map[string]error{"b.myshopify.com": errors.New("adapter down")}}
	job, err := NewReminderJob(ReminderJobParams{
		Logger: logger.Nop(),
		Runner: runner,
		Shops:  staticShops{"a.myshopify.com", "b.myshopify.com", "c.myshopify.com"},
	})
	if err != nil {
		t.Fatalf("NewReminderJob: %v", err)
	}
	if job.Name() != "wishlist-reminders" {
		t.Fatalf("unexpected job name %s", job.Name())
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected failing shop to surface an error")
	}
	if got := len(multierr.Errors(err)); got != 1 {
		t.Fatalf("expected one combined error, got %d", got)
	}
	if len(runner.shops) != 3 {
		t.Fatalf("expected all shops to be visited, got %v", runner.shops)
	}
}

func TestReminderJobStopsOnCancel(t *testing.T) {
	runner := &fakeReminderRunner{}
	job, err := NewReminderJob(ReminderJobParams{Logger: logger.Nop(), Runner: runner, Shops: staticShops{"a"}})
	if err != nil {
		t.Fatalf("NewReminderJob: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runner.shops) != 0 {
		t.Fatalf("expected no shops to run after cancel")
	}
}

func TestNewReminderJobValidates(t *testing.T) {
	if _, err := NewReminderJob(ReminderJobParams{Runner: &fakeReminderRunner{}, Shops: staticShops{}}); err == nil {
		t.Fatal("expected logger to be required")
	}
	if _, err := NewReminderJob(ReminderJobParams{Logger: logger.Nop(), Shops: staticShops{}}); err == nil {
		t.Fatal("expected runner to be required")
	}
}
