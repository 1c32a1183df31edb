package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
)

// Repository persists invoices and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Invoice, error)
	CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountNumbersWithPrefix(ctx context.Context, userID uuid.UUID, prefix string) (int, error)
	MarkPaid(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	SetPDFKey(ctx context.Context, id uuid.UUID, key string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the invoice together with its line items.
func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// FindByID returns nil without error when the invoice does not exist or
// belongs to another user.
func (r *repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return &invoice, nil
}

// List pages newest first. Callers pass pagination.LimitWithBuffer so the
// extra row signals another page.
func (r *repository) List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Invoice, error) {
	q := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Invoice
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return rows, nil
}

func (r *repository) CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return int(count), nil
}

func (r *repository) CountNumbersWithPrefix(ctx context.Context, userID uuid.UUID, prefix string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("user_id = ? AND invoice_number LIKE ?", userID, prefix+"%").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count invoice numbers: %w", err)
	}
	return int(count), nil
}

func (r *repository) MarkPaid(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark invoice paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetPDFKey(ctx context.Context, id uuid.UUID, key string) error {
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("pdf_object_key", key).Error; err != nil {
		return fmt.Errorf("set invoice pdf key: %w", err)
	}
	return nil
}
