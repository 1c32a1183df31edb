package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// CheckoutOrder records a hosted-checkout order opened with a payment gateway.
type CheckoutOrder struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Plan           enums.PlanID              `gorm:"column:plan;not null"`
	Gateway        enums.PaymentGateway      `gorm:"column:gateway;not null"`
	GatewayOrderID string                    `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	AmountMinor    int64                     `gorm:"column:amount_minor;not null"`
	Currency       string                    `gorm:"column:currency;not null"`
	Status         enums.CheckoutOrderStatus `gorm:"column:status;not null"`
	CheckoutURL    *string                   `gorm:"column:checkout_url"`
	PaymentRef     *string                   `gorm:"column:payment_ref"`
	PaidAt         *time.Time                `gorm:"column:paid_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *CheckoutOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
