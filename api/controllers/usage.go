package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/controllers/usercontext"
	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// UsageService reads the usage ledger.
type UsageService interface {
	Current(ctx context.Context, userID uuid.UUID) (*usage.Snapshot, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]usage.MonthUsage, error)
}

type usageHistoryResponse struct {
	Months []usage.MonthUsage `json:"months"`
}

// UsageCurrent handles GET /api/v1/usage.
func UsageCurrent(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snapshot, err := svc.Current(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// UsageHistory handles GET /api/v1/usage/history.
func UsageHistory(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 12, 1, 36)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		months, err := svc.History(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if months == nil {
			months = []usage.MonthUsage{}
		}
		responses.WriteSuccess(w, usageHistoryResponse{Months: months})
	}
}
