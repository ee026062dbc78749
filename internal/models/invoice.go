package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a fee invoice owned by the billing subsystem. This service
// only reads it and applies confirmed payments: paid_amount is
// monotonically non-decreasing and balance = max(0, total - paid).
type Invoice struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	StudentID   uint            `gorm:"not null;index" json:"student_id"`
	Number      string          `gorm:"size:30;uniqueIndex;not null" json:"number"`
	Term        string          `gorm:"size:20" json:"term"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaidAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Payments []Payment `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}
