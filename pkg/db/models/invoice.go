package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Invoice stores the raw invoice inputs. Status is derived on read and never
// stored.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex:invoices_user_number_idx,priority:1"`
	ClientID      *uuid.UUID          `gorm:"column:client_id;type:uuid"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex:invoices_user_number_idx,priority:2"`
	IssueDate     time.Time           `gorm:"column:issue_date;type:date;not null"`
	DueDate       *time.Time          `gorm:"column:due_date;type:date"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	SellerName    string              `gorm:"column:seller_name;not null"`
	SellerGSTIN   *string             `gorm:"column:seller_gstin"`
	SupplierState string              `gorm:"column:supplier_state;not null"`
	BuyerName     string              `gorm:"column:buyer_name;not null"`
	BuyerGSTIN    *string             `gorm:"column:buyer_gstin"`
	PlaceOfSupply string              `gorm:"column:place_of_supply;not null"`
	GSTRate       decimal.Decimal     `gorm:"column:gst_rate;type:numeric(5,2);not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	CGST          decimal.Decimal     `gorm:"column:cgst;type:numeric(14,2);not null"`
	SGST          decimal.Decimal     `gorm:"column:sgst;type:numeric(14,2);not null"`
	IGST          decimal.Decimal     `gorm:"column:igst;type:numeric(14,2);not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Notes         *string             `gorm:"column:notes"`
	PDFObjectKey  *string             `gorm:"column:pdf_object_key"`
	LineItems     []InvoiceLineItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceLineItem is one billable row.
type InvoiceLineItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	Position    int             `gorm:"column:position;not null"`
	Description string          `gorm:"column:description;not null"`
	SACCode     *string         `gorm:"column:sac_code"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
}

func (l *InvoiceLineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
