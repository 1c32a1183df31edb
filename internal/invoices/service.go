// Package invoices builds GST invoices: numbering, tax breakup, derived
// payment status and PDF rendering.
package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigdesk-backend/pkg/db"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
	"github.com/angelmondragon/gigdesk-backend/pkg/storage"
)

const (
	dateLayout        = "2006-01-02"
	maxNumberAttempts = 3
	defaultPDFURLTTL  = 15 * time.Minute
)

// QuotaChecker enforces the monthly invoice allowance.
type QuotaChecker interface {
	CheckCount(ctx context.Context, userID uuid.UUID, quota enums.QuotaType, current int) error
}

// ClientFinder resolves the buyer from the client book.
type ClientFinder interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
}

// CreateInput is a new invoice as entered in the form.
type CreateInput struct {
	ClientID      *uuid.UUID      `json:"client_id"`
	IssueDate     string          `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate       string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	SellerName    string          `json:"seller_name" validate:"required,max=200"`
	SellerGSTIN   string          `json:"seller_gstin" validate:"omitempty,len=15,alphanum"`
	SupplierState string          `json:"supplier_state" validate:"required,max=64"`
	BuyerName     string          `json:"buyer_name" validate:"omitempty,max=200"`
	BuyerGSTIN    string          `json:"buyer_gstin" validate:"omitempty,len=15,alphanum"`
	PlaceOfSupply string          `json:"place_of_supply" validate:"omitempty,max=64"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	Lines         []LineInput     `json:"line_items" validate:"required,min=1,max=100,dive"`
	Notes         string          `json:"notes" validate:"omitempty,max=2000"`
}

// StatusPreviewInput is the unsaved form state the status preview works from.
type StatusPreviewInput struct {
	IssueDate     string              `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate       string              `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// StatusPreview is the derived status for form state.
type StatusPreview struct {
	Status  Status `json:"status"`
	DueText string `json:"due_text,omitempty"`
}

// View is an invoice with its derived status.
type View struct {
	ID            uuid.UUID           `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	ClientID      *uuid.UUID          `json:"client_id,omitempty"`
	IssueDate     string              `json:"issue_date"`
	DueDate       string              `json:"due_date,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	Status        Status              `json:"status"`
	DueText       string              `json:"due_text,omitempty"`
	SellerName    string              `json:"seller_name"`
	SellerGSTIN   string              `json:"seller_gstin,omitempty"`
	SupplierState string              `json:"supplier_state"`
	BuyerName     string              `json:"buyer_name"`
	BuyerGSTIN    string              `json:"buyer_gstin,omitempty"`
	PlaceOfSupply string              `json:"place_of_supply"`
	Totals        Totals              `json:"totals"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// PDFResult carries a rendered invoice. URL is set when the document was
// uploaded to object storage.
type PDFResult struct {
	Filename  string `json:"filename"`
	ObjectKey string `json:"object_key,omitempty"`
	URL       string `json:"url,omitempty"`
	Content   []byte `json:"-"`
}

type ServiceParams struct {
	Repo      Repository
	Quota     QuotaChecker
	Clients   ClientFinder
	Storage   storage.Storage
	PDFURLTTL time.Duration
	Location  *time.Location
	Logger    *logger.Logger
	Now       func() time.Time
}

type Service struct {
	repo    Repository
	quota   QuotaChecker
	clients ClientFinder
	store   storage.Storage
	urlTTL  time.Duration
	loc     *time.Location
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repo required")
	}
	if params.Quota == nil {
		return nil, fmt.Errorf("quota checker required")
	}
	s := &Service{
		repo:    params.Repo,
		quota:   params.Quota,
		clients: params.Clients,
		store:   params.Storage,
		urlTTL:  params.PDFURLTTL,
		loc:     params.Location,
		logg:    params.Logger,
		now:     params.Now,
	}
	if s.urlTTL <= 0 {
		s.urlTTL = defaultPDFURLTTL
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Create validates the form, enforces the monthly invoice quota, numbers the
// invoice and stores it with its GST breakup.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*View, error) {
	issue, due, err := parseDates(in.IssueDate, in.DueDate)
	if err != nil {
		return nil, err
	}
	if due != nil && due.Before(issue) {
		return nil, validationError("due_date", "due date cannot be before the issue date")
	}

	if in.ClientID != nil {
		if err := s.fillBuyer(ctx, userID, &in); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.BuyerName) == "" {
		return nil, validationError("buyer_name", "buyer name or client is required")
	}
	if strings.TrimSpace(in.PlaceOfSupply) == "" {
		in.PlaceOfSupply = in.SupplierState
	}

	totals, err := ComputeTotals(in.Lines, in.GSTRate, in.SupplierState, in.PlaceOfSupply)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	now := s.now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	created, err := s.repo.CountCreatedSince(ctx, userID, monthStart.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count invoices")
	}
	if err := s.quota.CheckCount(ctx, userID, enums.QuotaTypeInvoice, created); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		UserID:        userID,
		ClientID:      in.ClientID,
		IssueDate:     issue,
		DueDate:       due,
		PaymentStatus: enums.PaymentStatusUnpaid,
		SellerName:    strings.TrimSpace(in.SellerName),
		SellerGSTIN:   optionalUpper(in.SellerGSTIN),
		SupplierState: strings.TrimSpace(in.SupplierState),
		BuyerName:     strings.TrimSpace(in.BuyerName),
		BuyerGSTIN:    optionalUpper(in.BuyerGSTIN),
		PlaceOfSupply: strings.TrimSpace(in.PlaceOfSupply),
		GSTRate:       totals.GSTRate,
		Subtotal:      totals.Subtotal,
		CGST:          totals.CGST,
		SGST:          totals.SGST,
		IGST:          totals.IGST,
		TotalAmount:   totals.Total,
		Notes:         optional(in.Notes),
		LineItems:     make([]models.InvoiceLineItem, 0, len(totals.Lines)),
		CreatedAt:     now.UTC(),
	}
	for i, line := range totals.Lines {
		invoice.LineItems = append(invoice.LineItems, models.InvoiceLineItem{
			Position:    i + 1,
			Description: strings.TrimSpace(line.Description),
			SACCode:     optional(line.SACCode),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
		})
	}

	if err := s.insertNumbered(ctx, userID, invoice, now); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":        userID.String(),
		"invoice_number": invoice.InvoiceNumber,
	}), "invoice created")

	view := s.toView(invoice)
	return &view, nil
}

// insertNumbered assigns the next monthly number, retrying when a concurrent
// create took the same one.
func (s *Service) insertNumbered(ctx context.Context, userID uuid.UUID, invoice *models.Invoice, now time.Time) error {
	existing, err := s.repo.CountNumbersWithPrefix(ctx, userID, NumberPrefix(now))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "number invoice")
	}
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		invoice.ID = uuid.Nil
		for i := range invoice.LineItems {
			invoice.LineItems[i].ID = uuid.Nil
			invoice.LineItems[i].InvoiceID = uuid.Nil
		}
		invoice.InvoiceNumber = FormatNumber(now, existing+attempt)
		err = s.repo.Create(ctx, invoice)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an invoice number, retry")
}

// Get returns one invoice of the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*View, error) {
	invoice, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := s.toView(invoice)
	return &view, nil
}

// List pages through the user's invoices newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[View], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, validationError("cursor", err.Error())
	}
	rows, err := s.repo.List(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(inv models.Invoice) pagination.Cursor {
		return pagination.Cursor{CreatedAt: inv.CreatedAt, ID: inv.ID}
	})

	page := &pagination.Page[View]{Items: make([]View, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Items = append(page.Items, s.toView(&rows[i]))
	}
	return page, nil
}

// MarkPaid flags the invoice paid. Marking a paid invoice again is a no-op.
func (s *Service) MarkPaid(ctx context.Context, userID, id uuid.UUID) (*View, error) {
	invoice, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if invoice.PaymentStatus != enums.PaymentStatusPaid {
		at := s.now().UTC()
		if err := s.repo.MarkPaid(ctx, userID, id, at); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
		}
		invoice.PaymentStatus = enums.PaymentStatusPaid
		invoice.PaidAt = &at
	}
	view := s.toView(invoice)
	return &view, nil
}

// PDF renders the invoice. With object storage configured the document is
// uploaded and a signed download link is returned alongside the bytes.
func (s *Service) PDF(ctx context.Context, userID, id uuid.UUID) (*PDFResult, error) {
	invoice, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := s.toView(invoice)
	content, err := RenderPDF(view, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice pdf")
	}

	result := &PDFResult{
		Filename: view.InvoiceNumber + ".pdf",
		Content:  content,
	}
	if s.store == nil {
		return result, nil
	}

	key := storage.InvoicePDFKey(userID.String(), view.InvoiceNumber)
	if err := s.store.Put(ctx, key, content, "application/pdf"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload invoice pdf")
	}
	if invoice.PDFObjectKey == nil || *invoice.PDFObjectKey != key {
		if err := s.repo.SetPDFKey(ctx, invoice.ID, key); err != nil {
			s.logg.Error(ctx, "store invoice pdf key failed", err)
		}
	}
	url, err := s.store.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign invoice pdf url")
	}
	result.ObjectKey = key
	result.URL = url
	return result, nil
}

// PreviewStatus derives status for unsaved form state.
func (s *Service) PreviewStatus(in StatusPreviewInput) (*StatusPreview, error) {
	issue, due, err := parseDates(in.IssueDate, in.DueDate)
	if err != nil {
		return nil, err
	}
	paid := in.PaymentStatus
	if paid == "" {
		paid = enums.PaymentStatusUnpaid
	}
	if !paid.IsValid() {
		return nil, validationError("payment_status", "payment status must be paid or unpaid")
	}
	today := s.today()
	status := ComputeStatus(issue, due, paid, today)
	return &StatusPreview{Status: status, DueText: DueText(due, status, today)}, nil
}

func (s *Service) find(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *Service) fillBuyer(ctx context.Context, userID uuid.UUID, in *CreateInput) error {
	if s.clients == nil {
		return validationError("client_id", "client lookup unavailable")
	}
	client, err := s.clients.FindByID(ctx, userID, *in.ClientID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if client == nil {
		return validationError("client_id", "client not found")
	}
	if strings.TrimSpace(in.BuyerName) == "" {
		in.BuyerName = client.Name
	}
	if in.BuyerGSTIN == "" && client.GSTIN != nil {
		in.BuyerGSTIN = *client.GSTIN
	}
	if strings.TrimSpace(in.PlaceOfSupply) == "" {
		in.PlaceOfSupply = client.StateCode
	}
	return nil
}

// today is the current calendar day in the configured zone.
func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) toView(inv *models.Invoice) View {
	today := s.today()
	status := ComputeStatus(inv.IssueDate, inv.DueDate, inv.PaymentStatus, today)

	totals := Totals{
		Lines:      make([]Line, 0, len(inv.LineItems)),
		Subtotal:   inv.Subtotal,
		GSTRate:    inv.GSTRate,
		IntraState: inv.IGST.IsZero() && SameState(inv.SupplierState, inv.PlaceOfSupply),
		CGST:       inv.CGST,
		SGST:       inv.SGST,
		IGST:       inv.IGST,
		TaxTotal:   inv.CGST.Add(inv.SGST).Add(inv.IGST),
		Total:      inv.TotalAmount,
	}
	for _, item := range inv.LineItems {
		totals.Lines = append(totals.Lines, Line{
			LineInput: LineInput{
				Description: item.Description,
				SACCode:     deref(item.SACCode),
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			},
			Amount: item.Amount,
		})
	}

	view := View{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		IssueDate:     inv.IssueDate.Format(dateLayout),
		PaymentStatus: inv.PaymentStatus,
		PaidAt:        inv.PaidAt,
		Status:        status,
		DueText:       DueText(inv.DueDate, status, today),
		SellerName:    inv.SellerName,
		SellerGSTIN:   deref(inv.SellerGSTIN),
		SupplierState: inv.SupplierState,
		BuyerName:     inv.BuyerName,
		BuyerGSTIN:    deref(inv.BuyerGSTIN),
		PlaceOfSupply: inv.PlaceOfSupply,
		Totals:        totals,
		Notes:         deref(inv.Notes),
		CreatedAt:     inv.CreatedAt,
	}
	if inv.DueDate != nil {
		view.DueDate = inv.DueDate.Format(dateLayout)
	}
	return view
}

func parseDates(issueRaw, dueRaw string) (time.Time, *time.Time, error) {
	issue, err := time.Parse(dateLayout, strings.TrimSpace(issueRaw))
	if err != nil {
		return time.Time{}, nil, validationError("issue_date", "issue date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(dueRaw) == "" {
		return issue, nil, nil
	}
	due, err := time.Parse(dateLayout, strings.TrimSpace(dueRaw))
	if err != nil {
		return time.Time{}, nil, validationError("due_date", "due date must be YYYY-MM-DD")
	}
	return issue, &due, nil
}

func validationError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]string{field: msg})
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalUpper(s string) *string {
	return optional(strings.ToUpper(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
