package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
	"github.com/angelmondragon/shopwish-backend/pkg/logger"
	"go.uber.org/multierr"
)

const reminderJobName = "wishlist-reminders"

type reminderRunner interface {
	RunScheduledTasks(ctx context.Context, shop string) (*webhooks.ReminderResult, error)
}

type shopLister interface {
	Shops() []string
}

type ReminderJobParams struct {
	Logger *logger.Logger
	Runner reminderRunner
	Shops  shopLister
}

// NewReminderJob sends wishlist reminders for every shop that holds a
// wishlist. A failing shop does not stop the others.
func NewReminderJob(params ReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("reminder runner required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop lister required")
	}
	return &reminderJob{
		logg:   params.Logger,
		runner: params.Runner,
		shops:  params.Shops,
	}, nil
}

type reminderJob struct {
	logg   *logger.Logger
	runner reminderRunner
	shops  shopLister
}

func (j *reminderJob) Name() string { return reminderJobName }

func (j *reminderJob) Run(ctx context.Context) error {
	var (
		errs  error
		total int
	)
	shops := j.shops.Shops()
	for _, shop := range shops {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		result, err := j.runner.RunScheduledTasks(ctx, shop)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shop %s: %w", shop, err))
			continue
		}
		if result != nil {
			total += result.RemindersSent
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"shops":          len(shops),
		"reminders_sent": total,
	}), "wishlist reminder sweep complete")
	return errs
}
