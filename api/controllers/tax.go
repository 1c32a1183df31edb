package controllers

import (
	"net/http"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	"github.com/angelmondragon/gigdesk-backend/internal/tax"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// TaxEstimate handles POST /api/v1/tax/estimate. The computation is pure, so
// no service is injected.
func TaxEstimate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload tax.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		comparison, err := tax.Compute(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}
		responses.WriteSuccess(w, comparison)
	}
}
