package invoices

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
	"github.com/angelmondragon/gigdesk-backend/pkg/storage"
)

type fakeQuota struct {
	limit int
	seen  []int
}

func (f *fakeQuota) CheckCount(_ context.Context, _ uuid.UUID, quota enums.QuotaType, current int) error {
	f.seen = append(f.seen, current)
	if quota != enums.QuotaTypeInvoice {
		return pkgerrors.New(pkgerrors.CodeInternal, "unexpected quota")
	}
	if current >= f.limit {
		return pkgerrors.New(pkgerrors.CodeQuotaExceeded, "limit reached")
	}
	return nil
}

type fakeClients struct {
	clients map[uuid.UUID]*models.Client
}

func (f *fakeClients) FindByID(_ context.Context, userID, id uuid.UUID) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return c, nil
}

type invoiceHarness struct {
	svc     *Service
	quota   *fakeQuota
	clients *fakeClients
	store   *storage.Memory
	now     time.Time
	userID  uuid.UUID
}

func newInvoiceHarness(t *testing.T, withStorage bool) *invoiceHarness {
	t.Helper()
	dsn := "file:invoices_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Invoice{}, &models.InvoiceLineItem{}))

	h := &invoiceHarness{
		quota:   &fakeQuota{limit: 5},
		clients: &fakeClients{clients: map[uuid.UUID]*models.Client{}},
		now:     time.Date(2025, time.January, 20, 6, 0, 0, 0, time.UTC),
		userID:  uuid.New(),
	}
	params := ServiceParams{
		Repo:    NewRepository(conn),
		Quota:   h.quota,
		Clients: h.clients,
		Now:     func() time.Time { return h.now },
	}
	if withStorage {
		h.store = storage.NewMemory("https://files.test")
		params.Storage = h.store
	}
	h.svc, err = NewService(params)
	require.NoError(t, err)
	return h
}

func sampleInput() CreateInput {
	return CreateInput{
		IssueDate:     "2025-01-10",
		DueDate:       "2025-01-25",
		SellerName:    "Asha Design Studio",
		SupplierState: "Karnataka",
		BuyerName:     "Acme Pvt Ltd",
		PlaceOfSupply: "karnataka",
		GSTRate:       decimal.NewFromInt(18),
		Lines: []LineInput{
			{Description: "Logo design", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10000)},
			{Description: "Revisions", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("1250.50")},
		},
	}
}

func TestCreateNumbersAndTotals(t *testing.T) {
	h := newInvoiceHarness(t, false)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, h.userID, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "INV-202501-0001", first.InvoiceNumber)
	assert.True(t, first.Totals.Subtotal.Equal(decimal.RequireFromString("12501")))
	assert.True(t, first.Totals.CGST.Equal(decimal.RequireFromString("1125.09")))
	assert.True(t, first.Totals.SGST.Equal(first.Totals.CGST))
	assert.True(t, first.Totals.IGST.IsZero())
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, "Due in 5 days", first.DueText)

	second, err := h.svc.Create(ctx, h.userID, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "INV-202501-0002", second.InvoiceNumber)
	assert.Equal(t, []int{0, 1}, h.quota.seen)

	got, err := h.svc.Get(ctx, h.userID, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Totals.Lines, 2)
	assert.Equal(t, "Logo design", got.Totals.Lines[0].Description)
	assert.True(t, got.Totals.IntraState)
}

func TestCreateEnforcesInvoiceQuota(t *testing.T) {
	h := newInvoiceHarness(t, false)
	h.quota.limit = 1
	ctx := context.Background()

	_, err := h.svc.Create(ctx, h.userID, sampleInput())
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, h.userID, sampleInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded))
}

func TestCreateRejectsBadInput(t *testing.T) {
	h := newInvoiceHarness(t, false)
	ctx := context.Background()

	in := sampleInput()
	in.DueDate = "2025-01-01"
	_, err := h.svc.Create(ctx, h.userID, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in = sampleInput()
	in.GSTRate = decimal.NewFromInt(7)
	_, err = h.svc.Create(ctx, h.userID, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in = sampleInput()
	in.BuyerName = ""
	_, err = h.svc.Create(ctx, h.userID, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateFillsBuyerFromClient(t *testing.T) {
	h := newInvoiceHarness(t, false)
	gstin := "29ABCDE1234F1Z5"
	client := &models.Client{ID: uuid.New(), UserID: h.userID, Name: "Globex", GSTIN: &gstin, StateCode: "Maharashtra"}
	h.clients.clients[client.ID] = client

	in := sampleInput()
	in.BuyerName = ""
	in.PlaceOfSupply = ""
	in.ClientID = &client.ID

	view, err := h.svc.Create(context.Background(), h.userID, in)
	require.NoError(t, err)
	assert.Equal(t, "Globex", view.BuyerName)
	assert.Equal(t, gstin, view.BuyerGSTIN)
	assert.False(t, view.Totals.IntraState)
	assert.True(t, view.Totals.IGST.Equal(decimal.RequireFromString("2250.18")))

	other := uuid.New()
	in.ClientID = &other
	_, err = h.svc.Create(context.Background(), h.userID, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkPaidAndOwnership(t *testing.T) {
	h := newInvoiceHarness(t, false)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, h.userID, sampleInput())
	require.NoError(t, err)

	_, err = h.svc.MarkPaid(ctx, uuid.New(), created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	paid, err := h.svc.MarkPaid(ctx, h.userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Empty(t, paid.DueText)
	require.NotNil(t, paid.PaidAt)

	again, err := h.svc.MarkPaid(ctx, h.userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, again.Status)
}

func TestListPagesNewestFirst(t *testing.T) {
	h := newInvoiceHarness(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.svc.Create(ctx, h.userID, sampleInput())
		require.NoError(t, err)
		h.now = h.now.Add(time.Minute)
	}

	page, err := h.svc.List(ctx, h.userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "INV-202501-0003", page.Items[0].InvoiceNumber)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.List(ctx, h.userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "INV-202501-0001", next.Items[0].InvoiceNumber)
	assert.Empty(t, next.NextCursor)

	_, err = h.svc.List(ctx, h.userID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPDFRendersAndUploads(t *testing.T) {
	h := newInvoiceHarness(t, true)
	ctx := context.Background()

	in := sampleInput()
	in.Notes = "Payable to HDFC a/c 1234"
	created, err := h.svc.Create(ctx, h.userID, in)
	require.NoError(t, err)

	result, err := h.svc.PDF(ctx, h.userID, created.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF-")))
	assert.Equal(t, "INV-202501-0001.pdf", result.Filename)
	assert.Equal(t, storage.InvoicePDFKey(h.userID.String(), "INV-202501-0001"), result.ObjectKey)
	assert.True(t, strings.HasPrefix(result.URL, "https://files.test/"))

	stored, contentType, ok := h.store.Get(result.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, result.Content, stored)
}

func TestPDFWithoutStorageReturnsBytesOnly(t *testing.T) {
	h := newInvoiceHarness(t, false)
	created, err := h.svc.Create(context.Background(), h.userID, sampleInput())
	require.NoError(t, err)

	result, err := h.svc.PDF(context.Background(), h.userID, created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Empty(t, result.URL)
}

func TestPreviewStatus(t *testing.T) {
	h := newInvoiceHarness(t, false)

	preview, err := h.svc.PreviewStatus(StatusPreviewInput{IssueDate: "2025-01-10", DueDate: "2025-01-05"})
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, preview.Status)
	assert.Equal(t, "Overdue by 15 days", preview.DueText)

	preview, err = h.svc.PreviewStatus(StatusPreviewInput{IssueDate: "2025-02-01"})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, preview.Status)
	assert.Empty(t, preview.DueText)

	_, err = h.svc.PreviewStatus(StatusPreviewInput{IssueDate: "2025-01-10", PaymentStatus: "maybe"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
