package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

type fakeExpirer struct {
	pending []uuid.UUID
	failFor map[uuid.UUID]bool
	listed  int
	expired []uuid.UUID
}

func (f *fakeExpirer) ListExpired(_ context.Context, _ time.Time, limit int) ([]models.BillingInfo, error) {
	f.listed++
	out := []models.BillingInfo{}
	for _, id := range f.pending {
		if len(out) == limit {
			break
		}
		out = append(out, models.BillingInfo{UserID: id})
	}
	return out, nil
}

func (f *fakeExpirer) Expire(_ context.Context, userID uuid.UUID, _ time.Time) (bool, error) {
	if f.failFor[userID] {
		return false, errors.New("db down")
	}
	for i, id := range f.pending {
		if id == userID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	f.expired = append(f.expired, userID)
	return true, nil
}

func TestSubscriptionExpiryJobDrainsBatches(t *testing.T) {
	subs := &fakeExpirer{}
	for i := 0; i < 5; i++ {
		subs.pending = append(subs.pending, uuid.New())
	}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:        logger.Nop(),
		Subscriptions: subs,
		BatchSize:     2,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, subs.expired, 5)
	assert.Empty(t, subs.pending)
	assert.Equal(t, "subscription-expiry", job.Name())
}

func TestSubscriptionExpiryJobCollectsErrors(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	subs := &fakeExpirer{pending: []uuid.UUID{bad, good}, failFor: map[uuid.UUID]bool{bad: true}}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:        logger.Nop(),
		Subscriptions: subs,
		BatchSize:     1,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, subs.expired, "a batch without progress stops paging")
	assert.Equal(t, 1, subs.listed)
}

type fakeOrderExpirer struct {
	maxAge time.Duration
	count  int64
	err    error
}

func (f *fakeOrderExpirer) ExpireStaleOrders(_ context.Context, maxAge time.Duration) (int64, error) {
	f.maxAge = maxAge
	return f.count, f.err
}

func TestCheckoutOrderTTLJobDefaultsMaxAge(t *testing.T) {
	orders := &fakeOrderExpirer{count: 3}
	job, err := NewCheckoutOrderTTLJob(CheckoutOrderTTLJobParams{Logger: logger.Nop(), Orders: orders})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 48*time.Hour, orders.maxAge)
}

func TestCheckoutOrderTTLJobWrapsError(t *testing.T) {
	orders := &fakeOrderExpirer{err: errors.New("timeout")}
	job, err := NewCheckoutOrderTTLJob(CheckoutOrderTTLJobParams{Logger: logger.Nop(), Orders: orders, MaxAge: time.Hour})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, time.Hour, orders.maxAge)
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	_, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewCheckoutOrderTTLJob(CheckoutOrderTTLJobParams{Orders: &fakeOrderExpirer{}})
	assert.Error(t, err)
}
