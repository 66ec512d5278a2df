package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces draft -> sent -> accepted/rejected.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusSent
	case StatusSent:
		return next == StatusAccepted || next == StatusRejected
	default:
		return false
	}
}

// Quotation persists every monetary field in minor units. Display
// surfaces read these integers back and never recompute from items.
// TotalAmount always equals SubtotalAmount + TaxAmount; OtherFees is
// stored and echoed but never folded into the total.
type Quotation struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	QuotationNumber string            `gorm:"uniqueIndex;not null" json:"quotation_number"`
	CustomerID      snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	Salesperson     string            `json:"salesperson"`
	IssuedDate      time.Time         `gorm:"not null" json:"issued_date"`
	ValidUntil      *time.Time        `json:"valid_until,omitempty"`
	ShippingDate    *time.Time        `json:"shipping_date,omitempty"`
	PaymentMethod   string            `json:"payment_method"`
	ShippingMethod  string            `json:"shipping_method"`
	SubtotalAmount  int64             `gorm:"not null" json:"subtotal"`
	TaxRateUnits    int64             `gorm:"not null;default:500" json:"tax_rate_units"`
	TaxAmount       int64             `gorm:"not null" json:"tax_amount"`
	OtherFees       int64             `gorm:"not null;default:0" json:"other_fees"`
	TotalAmount     int64             `gorm:"not null" json:"total_amount"`
	Status          Status            `gorm:"not null;default:'draft'" json:"status"`
	Notes           string            `json:"notes,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Customer *customerdomain.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items    []QuotationItem          `gorm:"foreignKey:QuotationID" json:"items,omitempty"`
}

type QuotationItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	QuotationID snowflake.ID `gorm:"not null;index" json:"quotation_id"`
	ProductName string       `gorm:"not null" json:"product_name"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"not null" json:"unit_price"`
	Taxable     bool         `gorm:"not null;default:true" json:"is_taxable"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
