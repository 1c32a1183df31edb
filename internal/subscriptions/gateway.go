package subscriptions

import (
	"context"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	"github.com/angelmondragon/gigdesk-backend/pkg/razorpay"
	"github.com/angelmondragon/gigdesk-backend/pkg/stripe"
)

// CheckoutRequest is what a gateway needs to open a hosted checkout.
type CheckoutRequest struct {
	OrderID     string
	UserID      string
	Plan        enums.PlanID
	Description string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutResult identifies the gateway-side order.
type CheckoutResult struct {
	GatewayOrderID string
	CheckoutURL    string
	KeyID          string
}

// PaymentGateway opens checkouts and verifies client-side payment callbacks.
type PaymentGateway interface {
	Name() enums.PaymentGateway
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// VerifyPayment reports whether the callback signature is genuine. Gateways
	// that only confirm payments through webhooks return false.
	VerifyPayment(orderID, paymentID, signature string) bool
}

type razorpayOrders interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

type razorpayGateway struct {
	client razorpayOrders
}

func NewRazorpayGateway(client razorpayOrders) PaymentGateway {
	return &razorpayGateway{client: client}
}

func (g *razorpayGateway) Name() enums.PaymentGateway {
	return enums.PaymentGatewayRazorpay
}

func (g *razorpayGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	order, err := g.client.CreateOrder(ctx, req.AmountMinor, req.Currency, req.OrderID, map[string]string{
		"order_id": req.OrderID,
		"user_id":  req.UserID,
		"plan":     req.Plan.String(),
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{GatewayOrderID: order.ID, KeyID: g.client.KeyID()}, nil
}

func (g *razorpayGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	return g.client.VerifyPaymentSignature(orderID, paymentID, signature)
}

type stripeSessions interface {
	CreateCheckoutSession(ctx context.Context, in stripe.CheckoutParams) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	client stripeSessions
}

func NewStripeGateway(client stripeSessions) PaymentGateway {
	return &stripeGateway{client: client}
}

func (g *stripeGateway) Name() enums.PaymentGateway {
	return enums.PaymentGatewayStripe
}

func (g *stripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	sess, err := g.client.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		Plan:        req.Plan.String(),
		Description: req.Description,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{GatewayOrderID: sess.ID, CheckoutURL: sess.URL}, nil
}

func (g *stripeGateway) VerifyPayment(string, string, string) bool {
	return false
}
