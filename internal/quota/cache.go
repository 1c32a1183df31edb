package quota

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

const planCacheScope = "plan"

type jsonStore interface {
	CacheKey(scope, id string) string
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// PlanCache keeps a short-lived copy of each user's subscription record in Redis.
type PlanCache struct {
	store jsonStore
	ttl   time.Duration
}

type cachedSubscription struct {
	Exists    bool                     `json:"exists"`
	Plan      enums.PlanID             `json:"plan"`
	Status    enums.SubscriptionStatus `json:"status"`
	PeriodEnd *time.Time               `json:"period_end,omitempty"`
}

func NewPlanCache(store jsonStore, ttl time.Duration) *PlanCache {
	if store == nil || ttl <= 0 {
		return nil
	}
	return &PlanCache{store: store, ttl: ttl}
}

// Get returns the cached record. found is false on a miss; a cached absence
// yields found with a nil record.
func (c *PlanCache) Get(ctx context.Context, userID uuid.UUID) (sub *models.BillingInfo, found bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	var cached cachedSubscription
	found, err = c.store.GetJSON(ctx, c.key(userID), &cached)
	if err != nil || !found {
		return nil, false, err
	}
	if !cached.Exists {
		return nil, true, nil
	}
	return &models.BillingInfo{
		UserID:             userID,
		CurrentPlan:        cached.Plan,
		SubscriptionStatus: cached.Status,
		CurrentPeriodEnd:   cached.PeriodEnd,
	}, true, nil
}

func (c *PlanCache) Set(ctx context.Context, userID uuid.UUID, sub *models.BillingInfo) error {
	if c == nil {
		return nil
	}
	cached := cachedSubscription{}
	if sub != nil {
		cached = cachedSubscription{
			Exists:    true,
			Plan:      sub.CurrentPlan,
			Status:    sub.SubscriptionStatus,
			PeriodEnd: sub.CurrentPeriodEnd,
		}
	}
	return c.store.SetJSON(ctx, c.key(userID), cached, c.ttl)
}

// Invalidate drops the cached record so the next lookup reads the database.
func (c *PlanCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil {
		return nil
	}
	return c.store.Del(ctx, c.key(userID))
}

func (c *PlanCache) key(userID uuid.UUID) string {
	return c.store.CacheKey(planCacheScope, userID.String())
}
