package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
)

// BillingStore reads subscription records and receives the usage mirror.
type BillingStore interface {
	FindBilling(ctx context.Context, userID uuid.UUID) (*models.BillingInfo, error)
	UpdateUsageMirror(ctx context.Context, userID uuid.UUID, proposals, followups int) error
}

type denialRecorder interface {
	IncDenied(quota, plan string)
}

// ExceededDetails is attached to QUOTA_EXCEEDED errors.
type ExceededDetails struct {
	Quota enums.QuotaType `json:"quota"`
	Plan  enums.PlanID    `json:"plan"`
	Limit int             `json:"limit"`
	Used  int             `json:"used"`
}

type GateParams struct {
	Billing  BillingStore
	Ledger   usage.Repository
	Cache    *PlanCache
	Catalog  plans.Catalog
	Location *time.Location
	Logger   *logger.Logger
	Metrics  denialRecorder
	Now      func() time.Time
}

// Gate enforces plan allowances.
type Gate struct {
	billing BillingStore
	ledger  usage.Repository
	cache   *PlanCache
	catalog plans.Catalog
	loc     *time.Location
	logg    *logger.Logger
	metrics denialRecorder
	now     func() time.Time
}

func NewGate(params GateParams) (*Gate, error) {
	if params.Billing == nil {
		return nil, errors.New("billing store required")
	}
	if params.Ledger == nil {
		return nil, errors.New("usage ledger required")
	}
	g := &Gate{
		billing: params.Billing,
		ledger:  params.Ledger,
		cache:   params.Cache,
		catalog: params.Catalog,
		loc:     params.Location,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     params.Now,
	}
	if g.catalog == nil {
		g.catalog = plans.Default()
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.logg == nil {
		g.logg = logger.Nop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Subscription loads the user's billing record, preferring the plan cache.
func (g *Gate) Subscription(ctx context.Context, userID uuid.UUID) (*models.BillingInfo, error) {
	sub, found, err := g.cache.Get(ctx, userID)
	if err != nil {
		g.logg.Warn(ctx, fmt.Sprintf("plan cache read failed: %v", err))
	}
	if found {
		return sub, nil
	}

	sub, err = g.billing.FindBilling(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if err := g.cache.Set(ctx, userID, sub); err != nil {
		g.logg.Warn(ctx, fmt.Sprintf("plan cache write failed: %v", err))
	}
	return sub, nil
}

// EffectivePlan resolves the plan whose limits currently apply to userID.
func (g *Gate) EffectivePlan(ctx context.Context, userID uuid.UUID) (enums.PlanID, error) {
	sub, err := g.Subscription(ctx, userID)
	if err != nil {
		return "", err
	}
	return EffectivePlan(sub, g.now()), nil
}

// Limits returns the effective plan's allowances.
func (g *Gate) Limits(ctx context.Context, userID uuid.UUID) (plans.PlanLimits, error) {
	plan, err := g.EffectivePlan(ctx, userID)
	if err != nil {
		return plans.PlanLimits{}, err
	}
	return g.catalog.Lookup(string(plan)), nil
}

// Month is the ledger month for the gate's clock.
func (g *Gate) Month() time.Time {
	return usage.MonthStart(g.now(), g.loc)
}

// Check is a read-only pre-check of a ledger quota. Increment re-validates at
// write time, so a passing Check does not reserve anything.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) error {
	if !quota.Ledger() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("quota %s is count based", quota))
	}
	sub, err := g.Subscription(ctx, userID)
	if err != nil {
		return err
	}
	entry, err := g.ledger.GetOrCreate(ctx, userID, g.Month())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load usage")
	}
	now := g.now()
	if CanIncrement(entry, sub, g.catalog, quota, now) {
		return nil
	}
	plan := EffectivePlan(sub, now)
	return g.exceeded(quota, plan, g.catalog.Lookup(string(plan)).Limit(quota), usage.Used(entry, quota))
}

// Increment consumes one unit of quota through the ledger's atomic
// conditional increment and mirrors the new counts onto the billing record.
func (g *Gate) Increment(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) (*models.UsageStat, error) {
	if !quota.Ledger() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("quota %s is count based", quota))
	}
	sub, err := g.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan := EffectivePlan(sub, g.now())
	limit := g.catalog.Lookup(string(plan)).Limit(quota)

	entry, ok, err := g.ledger.IncrementIfBelow(ctx, userID, g.Month(), quota, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment usage")
	}
	if !ok {
		return nil, g.exceeded(quota, plan, limit, usage.Used(entry, quota))
	}

	g.mirror(ctx, userID, entry)
	return entry, nil
}

// Release hands back a unit reserved by Increment.
func (g *Gate) Release(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) error {
	if err := g.ledger.Decrement(ctx, userID, g.Month(), quota); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release usage")
	}
	return nil
}

// RecordTokens adds provider token usage to the current month.
func (g *Gate) RecordTokens(ctx context.Context, userID uuid.UUID, tokens int) error {
	if err := g.ledger.AddTokens(ctx, userID, g.Month(), int64(tokens)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tokens")
	}
	return nil
}

// CheckCount enforces a count-based quota given the number of records the
// user already has.
func (g *Gate) CheckCount(ctx context.Context, userID uuid.UUID, quota enums.QuotaType, current int) error {
	if quota.Ledger() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("quota %s is ledger based", quota))
	}
	plan, err := g.EffectivePlan(ctx, userID)
	if err != nil {
		return err
	}
	limit := g.catalog.Lookup(string(plan)).Limit(quota)
	if current < limit {
		return nil
	}
	return g.exceeded(quota, plan, limit, current)
}

// Invalidate drops the cached subscription for userID.
func (g *Gate) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return g.cache.Invalidate(ctx, userID)
}

func (g *Gate) mirror(ctx context.Context, userID uuid.UUID, entry *models.UsageStat) {
	if entry == nil {
		return
	}
	if err := g.billing.UpdateUsageMirror(ctx, userID, entry.ProposalsUsed, entry.FollowupsUsed); err != nil {
		g.logg.Error(g.logg.WithUserID(ctx, userID.String()), "usage mirror update failed", err)
	}
}

func (g *Gate) exceeded(quota enums.QuotaType, plan enums.PlanID, limit, current int) error {
	if g.metrics != nil {
		g.metrics.IncDenied(quota.String(), plan.String())
	}
	return pkgerrors.New(pkgerrors.CodeQuotaExceeded, fmt.Sprintf("monthly %s limit reached for the %s plan", quota, plan)).
		WithDetails(ExceededDetails{Quota: quota, Plan: plan, Limit: limit, Used: current})
}
