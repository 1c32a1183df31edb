package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// BillingInfo is the authoritative subscription record for a user. The
// *_used_mirror columns are a display copy of the usage ledger.
type BillingInfo struct {
	UserID              uuid.UUID                `gorm:"column:user_id;type:uuid;primaryKey"`
	CurrentPlan         enums.PlanID             `gorm:"column:current_plan;not null;default:'starter'"`
	SubscriptionStatus  enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'inactive'"`
	CurrentPeriodEnd    *time.Time               `gorm:"column:current_period_end"`
	Gateway             *enums.PaymentGateway    `gorm:"column:gateway"`
	GatewayPaymentRef   *string                  `gorm:"column:gateway_payment_ref"`
	ProposalsUsedMirror int                      `gorm:"column:proposals_used_mirror;not null;default:0"`
	FollowupsUsedMirror int                      `gorm:"column:followups_used_mirror;not null;default:0"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (BillingInfo) TableName() string { return "billing_info" }
