package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an immutable ledger record. Corrections are made with new
// compensating rows, never edits. PaymentRequestID is nil for payments
// recorded manually by a bursar. ReceiptRef is unique so a replayed receipt
// can never be applied twice.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	InvoiceID        uint            `gorm:"not null;index" json:"invoice_id"`
	PaymentRequestID *uint           `gorm:"index" json:"payment_request_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method           string          `gorm:"size:20;not null" json:"method"`
	ReceiptRef       string          `gorm:"size:50;uniqueIndex;not null" json:"receipt_ref"`
	PayerPhone       string          `gorm:"size:15" json:"payer_phone"`
	Status           string          `gorm:"size:20;not null" json:"status"`
	PaidAt           time.Time       `json:"paid_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
