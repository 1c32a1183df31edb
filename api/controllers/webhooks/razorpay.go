package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	razorpaywebhook "github.com/angelmondragon/gigdesk-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/razorpay"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

type RazorpayWebhookService interface {
	HandleEvent(ctx context.Context, event *razorpaywebhook.Event) error
}

// RazorpayWebhook handles Razorpay payment events. The signature is checked
// against the raw body before anything is decoded.
func RazorpayWebhook(svc RazorpayWebhookService, client signingClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "razorpay client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(razorpaySignatureHeader))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "razorpay signature missing"))
			return
		}
		if !razorpay.VerifyWebhookSignature(payload, signature, client.SigningSecret()) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid razorpay signature"))
			return
		}

		event, err := razorpaywebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid razorpay event"))
			return
		}

		deliveryID := strings.TrimSpace(r.Header.Get(razorpayEventIDHeader))
		if deliveryID == "" {
			deliveryID = event.DeliveryID()
		}

		deliver(ctx, w, logg, guard, delivery{
			gateway: "razorpay",
			id:      deliveryID,
			kind:    event.Event,
			apply: func(ctx context.Context) error {
				return svc.HandleEvent(ctx, event)
			},
		})
	}
}
