package subscriptions

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/controllers/usercontext"
	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	subsvc "github.com/angelmondragon/gigdesk-backend/internal/subscriptions"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// Service describes the subscription operations used by the HTTP controllers.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, plan string) (*subsvc.CheckoutOrderDescriptor, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*subsvc.StatusView, error)
	Verify(ctx context.Context, userID uuid.UUID, in subsvc.VerifyInput) (*subsvc.StatusView, error)
	Status(ctx context.Context, userID uuid.UUID) (*subsvc.StatusView, error)
}

type subscriptionCreateRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Plan   string `json:"plan" validate:"required,oneof=basic pro"`
}

type subscriptionCancelRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// The field names follow the Razorpay checkout handler response.
type subscriptionVerifyRequest struct {
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Create handles POST /api/v1/subscriptions and returns the checkout order
// the client completes with the payment gateway.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		var payload subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := usercontext.ResolveActingUser(r, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Create(ctx, userID, payload.Plan)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Verify handles POST /api/v1/subscriptions/verify, the fallback for when the
// webhook has not arrived by the time the client returns from checkout.
func Verify(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		var payload subscriptionVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := usercontext.ResolveActingUser(r, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Verify(ctx, userID, subsvc.VerifyInput{
			OrderID:   payload.OrderID,
			PaymentID: payload.PaymentID,
			Signature: payload.Signature,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// Cancel handles POST /api/v1/subscriptions/cancel.
func Cancel(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		var payload subscriptionCancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := usercontext.ResolveActingUser(r, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Cancel(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// Fetch handles GET /api/v1/subscription, polled by the client after checkout.
func Fetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Status(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, status)
	}
}
