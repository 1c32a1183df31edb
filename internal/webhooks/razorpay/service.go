// Package razorpaywebhook applies Razorpay payment events to subscriptions.
package razorpaywebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/gigdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

// Event is the subset of a Razorpay webhook body the service reads.
type Event struct {
	Entity    string   `json:"entity"`
	Event     string   `json:"event"`
	Payload   Payload  `json:"payload"`
	CreatedAt int64    `json:"created_at"`
	Contains  []string `json:"contains"`
}

type Payload struct {
	Payment *struct {
		Entity Payment `json:"entity"`
	} `json:"payment"`
	Order *struct {
		Entity Order `json:"entity"`
	} `json:"order"`
}

type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode razorpay event: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("razorpay event name missing")
	}
	return &event, nil
}

// DeliveryID identifies the event for idempotency when the delivery header is
// absent.
func (e *Event) DeliveryID() string {
	ref := ""
	if e.Payload.Payment != nil {
		ref = e.Payload.Payment.Entity.ID
	}
	if ref == "" && e.Payload.Order != nil {
		ref = e.Payload.Order.Entity.ID
	}
	if ref == "" {
		return ""
	}
	return e.Event + ":" + ref
}

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

// HandleEvent activates the subscription behind a captured payment. Events
// for unknown orders are acknowledged and logged.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "razorpay event required")
	}
	switch event.Event {
	case EventPaymentCaptured, EventOrderPaid:
	default:
		s.logg.Debug(ctx, fmt.Sprintf("ignoring razorpay event %s", event.Event))
		return nil
	}

	if event.Payload.Payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment entity missing")
	}
	payment := event.Payload.Payment.Entity
	orderID := payment.OrderID
	if orderID == "" && event.Payload.Order != nil {
		orderID = event.Payload.Order.Entity.ID
	}
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing")
	}

	err := s.subs.Activate(ctx, subscriptions.ActivateParams{
		Gateway:        enums.PaymentGatewayRazorpay,
		GatewayOrderID: orderID,
		PaymentRef:     payment.ID,
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logg.Warn(s.logg.WithField(ctx, "gateway_order_id", orderID), "razorpay payment for unknown order")
		return nil
	}
	return err
}
