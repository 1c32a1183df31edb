package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageStat is one month of generation counters for a user.
type UsageStat struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Month         time.Time `gorm:"column:month;type:date;primaryKey"`
	ProposalsUsed int       `gorm:"column:proposals_used;not null;default:0"`
	FollowupsUsed int       `gorm:"column:followups_used;not null;default:0"`
	TokensUsed    int64     `gorm:"column:tokens_used;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UsageStat) TableName() string { return "usage_stats" }
