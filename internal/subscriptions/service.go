// Package subscriptions owns the billing record: plan purchases through the
// payment gateway, activation, cancellation and expiry.
package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/internal/quota"
	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PlanCache is invalidated after every subscription change.
type PlanCache interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// CheckoutOrderDescriptor is returned to the client to complete payment.
type CheckoutOrderDescriptor struct {
	OrderID        uuid.UUID            `json:"order_id"`
	Gateway        enums.PaymentGateway `json:"gateway"`
	GatewayOrderID string               `json:"gateway_order_id"`
	Plan           enums.PlanID         `json:"plan"`
	AmountMinor    int64                `json:"amount"`
	Currency       string               `json:"currency"`
	CheckoutURL    string               `json:"checkout_url,omitempty"`
	KeyID          string               `json:"key_id,omitempty"`
}

// StatusView is the polling view of a user's subscription.
type StatusView struct {
	CurrentPlan      enums.PlanID             `json:"current_plan"`
	EffectivePlan    enums.PlanID             `json:"effective_plan"`
	Status           enums.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time               `json:"current_period_end,omitempty"`
	Gateway          *enums.PaymentGateway    `json:"gateway,omitempty"`
	ProposalsUsed    int                      `json:"proposals_used"`
	FollowupsUsed    int                      `json:"followups_used"`
}

// ActivateParams identifies a paid checkout.
type ActivateParams struct {
	UserID         uuid.UUID
	Plan           enums.PlanID
	Gateway        enums.PaymentGateway
	GatewayOrderID string
	PaymentRef     string
	Now            time.Time
}

// VerifyInput is the client-side checkout callback payload.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

type ServiceParams struct {
	Repo       Repository
	Usage      usage.Repository
	Gateway    PaymentGateway
	Tx         txRunner
	Cache      PlanCache
	Catalog    plans.Catalog
	Location   *time.Location
	Currency   string
	SuccessURL string
	CancelURL  string
	Logger     *logger.Logger
	Now        func() time.Time
}

type Service struct {
	repo       Repository
	usage      usage.Repository
	gateway    PaymentGateway
	tx         txRunner
	cache      PlanCache
	catalog    plans.Catalog
	loc        *time.Location
	currency   string
	successURL string
	cancelURL  string
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage repo required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	s := &Service{
		repo:       params.Repo,
		usage:      params.Usage,
		gateway:    params.Gateway,
		tx:         params.Tx,
		cache:      params.Cache,
		catalog:    params.Catalog,
		loc:        params.Location,
		currency:   params.Currency,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
		logg:       params.Logger,
		now:        params.Now,
	}
	if s.catalog == nil {
		s.catalog = plans.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.currency == "" {
		s.currency = plans.Currency
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Create opens a gateway checkout for a paid plan and records the order.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, plan string) (*CheckoutOrderDescriptor, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	limits, ok := s.catalog.ParsePurchasable(plan)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan must be basic or pro").
			WithDetails(map[string]string{"plan": "must be one of: basic, pro"})
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	orderID := uuid.New()
	result, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		OrderID:     orderID.String(),
		UserID:      userID.String(),
		Plan:        limits.Plan,
		Description: fmt.Sprintf("GigDesk %s (monthly)", limits.DisplayName),
		AmountMinor: limits.PriceMinorUnits(),
		Currency:    s.currency,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout")
	}

	order := &models.CheckoutOrder{
		ID:             orderID,
		UserID:         userID,
		Plan:           limits.Plan,
		Gateway:        s.gateway.Name(),
		GatewayOrderID: result.GatewayOrderID,
		AmountMinor:    limits.PriceMinorUnits(),
		Currency:       s.currency,
		Status:         enums.CheckoutOrderStatusCreated,
		CreatedAt:      s.now().UTC(),
	}
	if result.CheckoutURL != "" {
		order.CheckoutURL = &result.CheckoutURL
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":  userID.String(),
		"order_id": orderID.String(),
		"plan":     limits.Plan.String(),
		"gateway":  order.Gateway.String(),
	}), "checkout order created")

	return &CheckoutOrderDescriptor{
		OrderID:        order.ID,
		Gateway:        order.Gateway,
		GatewayOrderID: order.GatewayOrderID,
		Plan:           order.Plan,
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		CheckoutURL:    result.CheckoutURL,
		KeyID:          result.KeyID,
	}, nil
}

// Cancel downgrades the user to starter immediately.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*StatusView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	info, err := s.repo.FindBilling(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if info == nil {
		info = &models.BillingInfo{UserID: userID}
	}
	info.CurrentPlan = enums.PlanIDStarter
	info.SubscriptionStatus = enums.SubscriptionStatusCancelled
	info.CurrentPeriodEnd = nil
	if err := s.repo.SaveBilling(ctx, info); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	s.invalidate(ctx, userID)
	return s.view(info), nil
}

// Activate marks the subscription active for one month from p.Now, marks the
// order paid and zeroes the current month's usage, in one transaction.
// Replays for an order already paid are no-ops.
func (s *Service) Activate(ctx context.Context, p ActivateParams) error {
	if p.Now.IsZero() {
		p.Now = s.now()
	}
	if p.UserID == uuid.Nil && p.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id or gateway order id required")
	}

	activated := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var order *models.CheckoutOrder
		if p.GatewayOrderID != "" {
			found, err := repo.FindOrderByGatewayID(ctx, p.Gateway, p.GatewayOrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout order")
			}
			if found == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "checkout order not found")
			}
			if found.Status == enums.CheckoutOrderStatusPaid {
				return nil
			}
			if p.UserID != uuid.Nil && p.UserID != found.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "checkout order belongs to another user")
			}
			order = found
			p.UserID = found.UserID
			if p.Plan == "" {
				p.Plan = found.Plan
			}
		}
		if !plans.IsPaid(p.Plan) {
			return pkgerrors.New(pkgerrors.CodeValidation, "activation requires a paid plan")
		}

		info, err := repo.FindBilling(ctx, p.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if info == nil {
			info = &models.BillingInfo{UserID: p.UserID}
		}
		periodEnd := p.Now.UTC().AddDate(0, 1, 0)
		gateway := p.Gateway
		info.CurrentPlan = p.Plan
		info.SubscriptionStatus = enums.SubscriptionStatusActive
		info.CurrentPeriodEnd = &periodEnd
		info.Gateway = &gateway
		if p.PaymentRef != "" {
			ref := p.PaymentRef
			info.GatewayPaymentRef = &ref
		}
		info.ProposalsUsedMirror = 0
		info.FollowupsUsedMirror = 0
		if err := repo.SaveBilling(ctx, info); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate subscription")
		}

		if order != nil {
			paidAt := p.Now.UTC()
			order.Status = enums.CheckoutOrderStatusPaid
			order.PaidAt = &paidAt
			if p.PaymentRef != "" {
				ref := p.PaymentRef
				order.PaymentRef = &ref
			}
			if err := repo.UpdateOrder(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
		}

		if err := s.usage.WithTx(tx).ResetMonth(ctx, p.UserID, usage.MonthStart(p.Now, s.loc)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset usage")
		}
		activated = true
		return nil
	})
	if err != nil {
		return err
	}
	if activated {
		s.invalidate(ctx, p.UserID)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"user_id": p.UserID.String(),
			"plan":    p.Plan.String(),
			"gateway": p.Gateway.String(),
		}), "subscription activated")
	}
	return nil
}

// Verify checks a client-side checkout callback and activates on success.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, in VerifyInput) (*StatusView, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id, payment_id and signature are required")
	}
	order, err := s.repo.FindOrderByGatewayID(ctx, s.gateway.Name(), in.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout order not found")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout order belongs to another user")
	}
	if !s.gateway.VerifyPayment(in.OrderID, in.PaymentID, in.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature mismatch")
	}
	if err := s.Activate(ctx, ActivateParams{
		UserID:         userID,
		Gateway:        order.Gateway,
		GatewayOrderID: order.GatewayOrderID,
		PaymentRef:     in.PaymentID,
	}); err != nil {
		return nil, err
	}
	return s.Status(ctx, userID)
}

// Status returns the stored record, defaulting to starter/inactive.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*StatusView, error) {
	info, err := s.repo.FindBilling(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if info == nil {
		info = &models.BillingInfo{
			UserID:             userID,
			CurrentPlan:        enums.PlanIDStarter,
			SubscriptionStatus: enums.SubscriptionStatusInactive,
		}
	}
	return s.view(info), nil
}

// Expire downgrades a lapsed subscription to starter and zeroes the current
// month's usage. Subscriptions renewed since they were listed are left alone.
func (s *Service) Expire(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		info, err := repo.FindBilling(ctx, userID)
		if err != nil {
			return err
		}
		if info == nil || info.SubscriptionStatus != enums.SubscriptionStatusActive {
			return nil
		}
		if info.CurrentPeriodEnd == nil || info.CurrentPeriodEnd.After(now) {
			return nil
		}
		info.CurrentPlan = enums.PlanIDStarter
		info.SubscriptionStatus = enums.SubscriptionStatusInactive
		info.CurrentPeriodEnd = nil
		info.ProposalsUsedMirror = 0
		info.FollowupsUsedMirror = 0
		if err := repo.SaveBilling(ctx, info); err != nil {
			return err
		}
		if err := s.usage.WithTx(tx).ResetMonth(ctx, userID, usage.MonthStart(now, s.loc)); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("expire subscription %s: %w", userID, err)
	}
	if expired {
		s.invalidate(ctx, userID)
	}
	return expired, nil
}

// ListExpired returns active subscriptions whose period has ended.
func (s *Service) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.BillingInfo, error) {
	return s.repo.ListExpired(ctx, now, limit)
}

// ExpireStaleOrders marks checkout orders unpaid for longer than maxAge as
// expired. A late payment for an expired order still activates through
// Activate, which matches on the gateway order id regardless of status.
func (s *Service) ExpireStaleOrders(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.repo.ExpireStaleOrders(ctx, s.now().UTC().Add(-maxAge))
}

func (s *Service) view(info *models.BillingInfo) *StatusView {
	return &StatusView{
		CurrentPlan:      info.CurrentPlan,
		EffectivePlan:    quota.EffectivePlan(info, s.now()),
		Status:           info.SubscriptionStatus,
		CurrentPeriodEnd: info.CurrentPeriodEnd,
		Gateway:          info.Gateway,
		ProposalsUsed:    info.ProposalsUsedMirror,
		FollowupsUsed:    info.FollowupsUsedMirror,
	}
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), fmt.Sprintf("plan cache invalidation failed: %v", err))
	}
}
