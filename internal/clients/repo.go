package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/pagination"
)

// Repository persists the client book.
type Repository interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Client, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, client *models.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// FindByID returns nil without error when the client is missing or owned by
// another user.
func (r *repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &client, nil
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Client, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Client
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return rows, nil
}

func (r *repository) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return int(count), nil
}
