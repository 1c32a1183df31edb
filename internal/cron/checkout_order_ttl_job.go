package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

const defaultCheckoutOrderMaxAge = 48 * time.Hour

type staleOrderExpirer interface {
	ExpireStaleOrders(ctx context.Context, maxAge time.Duration) (int64, error)
}

// CheckoutOrderTTLJobParams configure the checkout order TTL job.
type CheckoutOrderTTLJobParams struct {
	Logger *logger.Logger
	Orders staleOrderExpirer
	MaxAge time.Duration
}

type checkoutOrderTTLJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	maxAge time.Duration
}

// NewCheckoutOrderTTLJob builds the job that marks abandoned checkout orders
// as expired.
func NewCheckoutOrderTTLJob(params CheckoutOrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("checkout orders service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCheckoutOrderMaxAge
	}
	return &checkoutOrderTTLJob{logg: params.Logger, orders: params.Orders, maxAge: maxAge}, nil
}

func (j *checkoutOrderTTLJob) Name() string { return "checkout-order-ttl" }

func (j *checkoutOrderTTLJob) Run(ctx context.Context) error {
	count, err := j.orders.ExpireStaleOrders(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("expire stale checkout orders: %w", err)
	}
	if count > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", count), "checkout orders expired")
	}
	return nil
}
