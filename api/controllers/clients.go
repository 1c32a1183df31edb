package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/controllers/usercontext"
	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	"github.com/angelmondragon/gigdesk-backend/internal/clients"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
)

// ClientService manages a user's client book.
type ClientService interface {
	Create(ctx context.Context, userID uuid.UUID, in clients.CreateInput) (*clients.View, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[clients.View], error)
}

// ClientCreate handles POST /api/v1/clients.
func ClientCreate(svc ClientService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload clients.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload.Name = validators.SanitizeString(payload.Name, 200)

		view, err := svc.Create(ctx, userID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ClientList handles GET /api/v1/clients.
func ClientList(svc ClientService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.List(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
