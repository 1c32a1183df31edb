package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Repository persists billing records and checkout orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBilling(ctx context.Context, userID uuid.UUID) (*models.BillingInfo, error)
	SaveBilling(ctx context.Context, info *models.BillingInfo) error
	UpdateUsageMirror(ctx context.Context, userID uuid.UUID, proposals, followups int) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.BillingInfo, error)
	CreateOrder(ctx context.Context, order *models.CheckoutOrder) error
	UpdateOrder(ctx context.Context, order *models.CheckoutOrder) error
	FindOrderByGatewayID(ctx context.Context, gateway enums.PaymentGateway, gatewayOrderID string) (*models.CheckoutOrder, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.CheckoutOrder, error)
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int64, error)
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

// FindBilling returns nil without error when the user has no billing record yet.
func (r *repository) FindBilling(ctx context.Context, userID uuid.UUID) (*models.BillingInfo, error) {
	var info models.BillingInfo
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find billing info: %w", err)
	}
	return &info, nil
}

func (r *repository) SaveBilling(ctx context.Context, info *models.BillingInfo) error {
	if err := r.db.WithContext(ctx).Save(info).Error; err != nil {
		return fmt.Errorf("save billing info: %w", err)
	}
	return nil
}

// UpdateUsageMirror copies ledger counters onto the billing record, creating a
// starter record when none exists.
func (r *repository) UpdateUsageMirror(ctx context.Context, userID uuid.UUID, proposals, followups int) error {
	row := models.BillingInfo{
		UserID:              userID,
		CurrentPlan:         enums.PlanIDStarter,
		SubscriptionStatus:  enums.SubscriptionStatusInactive,
		ProposalsUsedMirror: proposals,
		FollowupsUsedMirror: followups,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"proposals_used_mirror", "followups_used_mirror", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("update usage mirror: %w", err)
	}
	return nil
}

// ListExpired returns active subscriptions whose period ended at or before now.
func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.BillingInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.BillingInfo
	if err := r.db.WithContext(ctx).
		Where("subscription_status = ?", enums.SubscriptionStatusActive).
		Where("current_period_end IS NOT NULL AND current_period_end <= ?", now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return rows, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.CheckoutOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create checkout order: %w", err)
	}
	return nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.CheckoutOrder) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("update checkout order: %w", err)
	}
	return nil
}

func (r *repository) FindOrderByGatewayID(ctx context.Context, gateway enums.PaymentGateway, gatewayOrderID string) (*models.CheckoutOrder, error) {
	var order models.CheckoutOrder
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND gateway_order_id = ?", gateway, gatewayOrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout order: %w", err)
	}
	return &order, nil
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.CheckoutOrder, error) {
	var order models.CheckoutOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout order: %w", err)
	}
	return &order, nil
}

// ExpireStaleOrders closes checkout orders still unpaid since before cutoff.
func (r *repository) ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CheckoutOrder{}).
		Where("status = ? AND created_at < ?", enums.CheckoutOrderStatusCreated, cutoff).
		Update("status", enums.CheckoutOrderStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire stale checkout orders: %w", res.Error)
	}
	return res.RowsAffected, nil
}
