package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeSigningClient interface {
	signingClient
	Environment() string
}

// StripeWebhook handles Stripe checkout completion events. Events from the
// other Stripe mode (a live event reaching a test deployment or the reverse)
// are acknowledged and dropped so they never activate a plan.
func StripeWebhook(svc StripeWebhookService, client stripeSigningClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch {
		case svc == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		case client == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		case guard == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(stripeSignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		if env := client.Environment(); env != "" && event.Livemode != (env == "live") {
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"event_id":    event.ID,
					"livemode":    event.Livemode,
					"environment": env,
				}), "webhook.mode_mismatch")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		deliver(ctx, w, logg, guard, delivery{
			gateway: "stripe",
			id:      event.ID,
			kind:    string(event.Type),
			apply: func(ctx context.Context) error {
				return svc.HandleEvent(ctx, &event)
			},
		})
	}
}
