package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/pkg/db"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
)

type fakeGateway struct {
	name      enums.PaymentGateway
	requests  []CheckoutRequest
	nextID    string
	err       error
	signature string
}

func (f *fakeGateway) Name() enums.PaymentGateway { return f.name }

func (f *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &CheckoutResult{GatewayOrderID: f.nextID, KeyID: "rzp_test_key"}, nil
}

func (f *fakeGateway) VerifyPayment(_, _, signature string) bool {
	return signature == f.signature
}

type fakeCache struct {
	invalidated []uuid.UUID
}

func (f *fakeCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

type harness struct {
	svc     *Service
	repo    Repository
	ledger  usage.Repository
	gateway *fakeGateway
	cache   *fakeCache
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:subs_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.BillingInfo{}, &models.CheckoutOrder{}, &models.UsageStat{}))

	h := &harness{
		repo:    NewRepository(conn),
		ledger:  usage.NewRepository(conn),
		gateway: &fakeGateway{name: enums.PaymentGatewayRazorpay, nextID: "order_rzp_1", signature: "good"},
		cache:   &fakeCache{},
		now:     time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:    h.repo,
		Usage:   h.ledger,
		Gateway: h.gateway,
		Tx:      db.NewFromGorm(conn),
		Cache:   h.cache,
		Now:     func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) month() time.Time {
	return usage.MonthStart(h.now, time.UTC)
}

func TestCreatePersistsCheckoutOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	desc, err := h.svc.Create(ctx, userID, "basic")
	require.NoError(t, err)
	assert.Equal(t, enums.PlanIDBasic, desc.Plan)
	assert.Equal(t, int64(49900), desc.AmountMinor)
	assert.Equal(t, "INR", desc.Currency)
	assert.Equal(t, "order_rzp_1", desc.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", desc.KeyID)

	require.Len(t, h.gateway.requests, 1)
	assert.Equal(t, desc.OrderID.String(), h.gateway.requests[0].OrderID)

	order, err := h.repo.FindOrderByGatewayID(ctx, enums.PaymentGatewayRazorpay, "order_rzp_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, enums.CheckoutOrderStatusCreated, order.Status)
	assert.Equal(t, userID, order.UserID)
}

func TestCreateRejectsFreeOrUnknownPlans(t *testing.T) {
	h := newHarness(t)
	for _, plan := range []string{"starter", "enterprise", ""} {
		_, err := h.svc.Create(context.Background(), uuid.New(), plan)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "plan %q", plan)
	}
	assert.Empty(t, h.gateway.requests)
}

func TestCreateGatewayFailureIsDependencyError(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = errors.New("razorpay down")
	_, err := h.svc.Create(context.Background(), uuid.New(), "pro")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestActivateResetsUsageAndMarksOrderPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		_, ok, err := h.ledger.IncrementIfBelow(ctx, userID, h.month(), enums.QuotaTypeProposal, 5)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, err := h.svc.Create(ctx, userID, "pro")
	require.NoError(t, err)

	err = h.svc.Activate(ctx, ActivateParams{
		Gateway:        enums.PaymentGatewayRazorpay,
		GatewayOrderID: "order_rzp_1",
		PaymentRef:     "pay_1",
		Now:            h.now,
	})
	require.NoError(t, err)

	info, err := h.repo.FindBilling(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, enums.PlanIDPro, info.CurrentPlan)
	assert.Equal(t, enums.SubscriptionStatusActive, info.SubscriptionStatus)
	require.NotNil(t, info.CurrentPeriodEnd)
	assert.True(t, info.CurrentPeriodEnd.Equal(time.Date(2025, time.February, 15, 10, 0, 0, 0, time.UTC)))

	entry, err := h.ledger.GetOrCreate(ctx, userID, h.month())
	require.NoError(t, err)
	assert.Equal(t, 0, entry.ProposalsUsed)

	order, err := h.repo.FindOrderByGatewayID(ctx, enums.PaymentGatewayRazorpay, "order_rzp_1")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutOrderStatusPaid, order.Status)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, "pay_1", *order.PaymentRef)

	assert.Equal(t, []uuid.UUID{userID}, h.cache.invalidated)
}

func TestActivateReplayIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := h.svc.Create(ctx, userID, "basic")
	require.NoError(t, err)
	params := ActivateParams{Gateway: enums.PaymentGatewayRazorpay, GatewayOrderID: "order_rzp_1", Now: h.now}
	require.NoError(t, h.svc.Activate(ctx, params))

	_, _, err = h.ledger.IncrementIfBelow(ctx, userID, h.month(), enums.QuotaTypeFollowup, 50)
	require.NoError(t, err)

	require.NoError(t, h.svc.Activate(ctx, params))
	entry, err := h.ledger.GetOrCreate(ctx, userID, h.month())
	require.NoError(t, err)
	assert.Equal(t, 1, entry.FollowupsUsed, "replayed activation must not reset usage again")
	assert.Len(t, h.cache.invalidated, 1)
}

func TestActivateUnknownOrder(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Activate(context.Background(), ActivateParams{Gateway: enums.PaymentGatewayStripe, GatewayOrderID: "cs_missing"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVerify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := h.svc.Create(ctx, userID, "pro")
	require.NoError(t, err)

	_, err = h.svc.Verify(ctx, userID, VerifyInput{OrderID: "order_rzp_1", PaymentID: "pay_9", Signature: "forged"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Verify(ctx, uuid.New(), VerifyInput{OrderID: "order_rzp_1", PaymentID: "pay_9", Signature: "good"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Verify(ctx, userID, VerifyInput{OrderID: "order_missing", PaymentID: "pay_9", Signature: "good"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err := h.svc.Verify(ctx, userID, VerifyInput{OrderID: "order_rzp_1", PaymentID: "pay_9", Signature: "good"})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, view.Status)
	assert.Equal(t, enums.PlanIDPro, view.EffectivePlan)
}

func TestCancelDowngradesToStarter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := h.svc.Create(ctx, userID, "pro")
	require.NoError(t, err)
	require.NoError(t, h.svc.Activate(ctx, ActivateParams{Gateway: enums.PaymentGatewayRazorpay, GatewayOrderID: "order_rzp_1"}))

	view, err := h.svc.Cancel(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlanIDStarter, view.CurrentPlan)
	assert.Equal(t, enums.PlanIDStarter, view.EffectivePlan)
	assert.Equal(t, enums.SubscriptionStatusCancelled, view.Status)
	assert.Nil(t, view.CurrentPeriodEnd)
	assert.Len(t, h.cache.invalidated, 2)
}

func TestStatusDefaultsToStarter(t *testing.T) {
	h := newHarness(t)
	view, err := h.svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.PlanIDStarter, view.CurrentPlan)
	assert.Equal(t, enums.SubscriptionStatusInactive, view.Status)
}

func TestExpireDowngradesLapsedSubscriptions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lapsed := uuid.New()
	current := uuid.New()
	past := h.now.Add(-time.Hour)
	future := h.now.Add(time.Hour)

	require.NoError(t, h.repo.SaveBilling(ctx, &models.BillingInfo{UserID: lapsed, CurrentPlan: enums.PlanIDPro, SubscriptionStatus: enums.SubscriptionStatusActive, CurrentPeriodEnd: &past}))
	require.NoError(t, h.repo.SaveBilling(ctx, &models.BillingInfo{UserID: current, CurrentPlan: enums.PlanIDBasic, SubscriptionStatus: enums.SubscriptionStatusActive, CurrentPeriodEnd: &future}))
	_, _, err := h.ledger.IncrementIfBelow(ctx, lapsed, h.month(), enums.QuotaTypeProposal, 300)
	require.NoError(t, err)

	due, err := h.svc.ListExpired(ctx, h.now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, lapsed, due[0].UserID)

	expired, err := h.svc.Expire(ctx, lapsed, h.now)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = h.svc.Expire(ctx, current, h.now)
	require.NoError(t, err)
	assert.False(t, expired)

	info, err := h.repo.FindBilling(ctx, lapsed)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusInactive, info.SubscriptionStatus)
	assert.Equal(t, enums.PlanIDStarter, info.CurrentPlan)

	entry, err := h.ledger.GetOrCreate(ctx, lapsed, h.month())
	require.NoError(t, err)
	assert.Equal(t, 0, entry.ProposalsUsed)
}

func TestUpdateUsageMirrorCreatesStarterRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, h.repo.UpdateUsageMirror(ctx, userID, 2, 1))
	require.NoError(t, h.repo.UpdateUsageMirror(ctx, userID, 3, 1))

	info, err := h.repo.FindBilling(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 3, info.ProposalsUsedMirror)
	assert.Equal(t, enums.PlanIDStarter, info.CurrentPlan)
}

func TestExpireStaleOrdersThenLatePaymentStillActivates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := h.svc.Create(ctx, userID, "pro")
	require.NoError(t, err)

	h.now = h.now.Add(time.Hour)
	n, err := h.svc.ExpireStaleOrders(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh orders stay open")

	h.now = h.now.Add(72 * time.Hour)
	n, err = h.svc.ExpireStaleOrders(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	order, err := h.repo.FindOrderByGatewayID(ctx, enums.PaymentGatewayRazorpay, "order_rzp_1")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutOrderStatusExpired, order.Status)

	require.NoError(t, h.svc.Activate(ctx, ActivateParams{Gateway: enums.PaymentGatewayRazorpay, GatewayOrderID: "order_rzp_1", PaymentRef: "pay_late"}))
	info, err := h.repo.FindBilling(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlanIDPro, info.CurrentPlan)
}
