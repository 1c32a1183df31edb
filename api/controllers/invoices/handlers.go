package invoices

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/controllers/usercontext"
	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/api/validators"
	invoicesvc "github.com/angelmondragon/gigdesk-backend/internal/invoices"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
)

// Service describes the invoice operations used by the HTTP controllers.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in invoicesvc.CreateInput) (*invoicesvc.View, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*invoicesvc.View, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[invoicesvc.View], error)
	MarkPaid(ctx context.Context, userID, id uuid.UUID) (*invoicesvc.View, error)
	PDF(ctx context.Context, userID, id uuid.UUID) (*invoicesvc.PDFResult, error)
	PreviewStatus(in invoicesvc.StatusPreviewInput) (*invoicesvc.StatusPreview, error)
}

type pdfLinkResponse struct {
	Filename  string `json:"filename"`
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
}

// Create handles POST /api/v1/invoices.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload invoicesvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload.SellerName = validators.SanitizeString(payload.SellerName, 200)
		payload.BuyerName = validators.SanitizeString(payload.BuyerName, 200)
		payload.Notes = validators.SanitizeText(payload.Notes, 2000)

		view, err := svc.Create(ctx, userID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// List handles GET /api/v1/invoices.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
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

// Detail handles GET /api/v1/invoices/{id}.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		view, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	})
}

// MarkPaid handles POST /api/v1/invoices/{id}/paid.
func MarkPaid(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		view, err := svc.MarkPaid(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	})
}

// PDF handles GET /api/v1/invoices/{id}/pdf. When the document was uploaded
// to object storage and the caller asks for a link (?format=url or
// Accept: application/json) the signed URL is returned; otherwise the bytes
// are streamed.
func PDF(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		result, err := svc.PDF(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.URL != "" && wantsLink(r) {
			responses.WriteSuccess(w, pdfLinkResponse{
				Filename:  result.Filename,
				ObjectKey: result.ObjectKey,
				URL:       result.URL,
			})
			return
		}
		responses.WriteFile(w, "application/pdf", result.Filename, result.Content)
	})
}

// PreviewStatus handles POST /api/v1/invoices/status.
func PreviewStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		var payload invoicesvc.StatusPreviewInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		preview, err := svc.PreviewStatus(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

type invoiceHandler func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID)

func withInvoice(svc Service, logg *logger.Logger, next invoiceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		userID, err := usercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		next(w, r, userID, id)
	}
}

func wantsLink(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "url") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
