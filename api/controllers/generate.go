package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/controllers/usercontext"
	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	"github.com/angelmondragon/gigdesk-backend/internal/ai"
	"github.com/angelmondragon/gigdesk-backend/internal/generation"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// GenerationService produces proposal and follow-up content.
type GenerationService interface {
	Generate(ctx context.Context, userID uuid.UUID, req generation.Request) (*ai.Result, error)
}

// Generate handles POST /api/v1/generate.
func Generate(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		var payload generation.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := usercontext.ResolveActingUser(r, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Generate(ctx, userID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
