package webhooks

import (
	"context"
	"net/http"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// eventGuard marks deliveries processed so provider retries are acknowledged
// without being applied twice.
type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingClient interface {
	SigningSecret() string
}

// delivery is one verified gateway event ready to be applied.
type delivery struct {
	gateway string
	id      string
	kind    string
	apply   func(ctx context.Context) error
}

// deliver applies d at most once per delivery id and writes the response.
// An empty id cannot be deduplicated and is applied every time. A failed
// apply releases the id so the gateway's retry goes through.
func deliver(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, guard eventGuard, d delivery) {
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"gateway":    d.gateway,
			"event_id":   d.id,
			"event_type": d.kind,
		})
	}

	if d.id != "" {
		alreadyProcessed, err := guard.CheckAndMark(ctx, d.id)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "webhook.duplicate")
			}
			responses.WriteSuccess(w, nil)
			return
		}
	}

	if err := d.apply(ctx); err != nil {
		if d.id != "" {
			if releaseErr := guard.Delete(ctx, d.id); releaseErr != nil && logg != nil {
				logg.Error(ctx, "webhook.release_failed", releaseErr)
			}
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}

	if logg != nil {
		logg.Info(ctx, "webhook.processed")
	}
	responses.WriteSuccess(w, nil)
}
