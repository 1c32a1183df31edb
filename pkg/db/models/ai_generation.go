package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// AIGeneration is the permanent log of generated content. (input_hash, type,
// user_id) doubles as the dedupe index.
type AIGeneration struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ai_generations_dedupe_idx,priority:3"`
	Type       enums.GenerationType `gorm:"column:type;not null;uniqueIndex:ai_generations_dedupe_idx,priority:2"`
	InputHash  string               `gorm:"column:input_hash;not null;uniqueIndex:ai_generations_dedupe_idx,priority:1"`
	Plan       enums.PlanID         `gorm:"column:plan;not null"`
	Model      string               `gorm:"column:model;not null"`
	FormInputs json.RawMessage      `gorm:"column:form_inputs;type:jsonb"`
	Content    string               `gorm:"column:content;not null"`
	TokensUsed int                  `gorm:"column:tokens_used;not null;default:0"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (g *AIGeneration) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
