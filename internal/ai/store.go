package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Store is the permanent generation log.
type Store interface {
	Find(ctx context.Context, userID uuid.UUID, genType enums.GenerationType, hash string) (*models.AIGeneration, error)
	Save(ctx context.Context, gen *models.AIGeneration) (*models.AIGeneration, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) Store {
	return &gormStore{db: conn}
}

// Find returns nil without error on a miss.
func (s *gormStore) Find(ctx context.Context, userID uuid.UUID, genType enums.GenerationType, hash string) (*models.AIGeneration, error) {
	var gen models.AIGeneration
	err := s.db.WithContext(ctx).
		Where("input_hash = ? AND type = ? AND user_id = ?", hash, genType, userID).
		First(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generation: %w", err)
	}
	return &gen, nil
}

// Save inserts gen. When a concurrent request stored the same key first, the
// stored row wins and is returned.
func (s *gormStore) Save(ctx context.Context, gen *models.AIGeneration) (*models.AIGeneration, error) {
	err := s.db.WithContext(ctx).Create(gen).Error
	if err == nil {
		return gen, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, fmt.Errorf("save generation: %w", err)
	}
	existing, findErr := s.Find(ctx, gen.UserID, gen.Type, gen.InputHash)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, fmt.Errorf("save generation: %w", err)
	}
	return existing, nil
}
