package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

const defaultExpiryBatchSize = 200

type subscriptionExpirer interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.BillingInfo, error)
	Expire(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
}

// SubscriptionExpiryJobParams configure the subscription expiry job.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
	BatchSize     int
	Now           func() time.Time
}

type subscriptionExpiryJob struct {
	logg      *logger.Logger
	subs      subscriptionExpirer
	batchSize int
	now       func() time.Time
}

// NewSubscriptionExpiryJob builds the job that downgrades lapsed paid
// subscriptions back to starter.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{
		logg:      params.Logger,
		subs:      params.Subscriptions,
		batchSize: batch,
		now:       now,
	}, nil
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

// Run drains lapsed subscriptions in batches. A failed row does not stop the
// batch, but the job stops paging once a batch makes no progress so failing
// rows are not retried in a loop.
func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		errs    error
		expired int
	)
	for {
		rows, err := j.subs.ListExpired(ctx, now, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list expired subscriptions: %w", err))
		}
		progressed := 0
		for _, row := range rows {
			if ctx.Err() != nil {
				return multierr.Append(errs, ctx.Err())
			}
			ok, err := j.subs.Expire(ctx, row.UserID, now)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if ok {
				progressed++
			}
		}
		expired += progressed
		if len(rows) < j.batchSize || progressed == 0 {
			break
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "subscription expiry finished")
	return errs
}
