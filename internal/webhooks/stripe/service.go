// Package stripewebhook applies Stripe Checkout events to subscriptions.
package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/gigdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

type activator interface {
	Activate(ctx context.Context, p subscriptions.ActivateParams) error
}

type Service struct {
	subs activator
	logg *logger.Logger
}

func NewService(subs activator, logg *logger.Logger) (*Service, error) {
	if subs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{subs: subs, logg: logg}, nil
}

// HandleEvent activates the plan bought through a completed, paid checkout
// session. Other event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		s.logg.Debug(ctx, fmt.Sprintf("ignoring stripe event %s", event.Type))
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session completed without payment")
		return nil
	}

	paymentRef := ""
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}
	err := s.subs.Activate(ctx, subscriptions.ActivateParams{
		Gateway:        enums.PaymentGatewayStripe,
		GatewayOrderID: session.ID,
		PaymentRef:     paymentRef,
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", session.ID), "stripe session for unknown order")
		return nil
	}
	return err
}
