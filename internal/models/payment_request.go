package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is an in-flight STK push. CheckoutRequestID is the natural
// key the gateway uses to correlate its asynchronous result. Rows are never
// deleted; terminal rows are kept for audit and duplicate-delivery lookups.
type PaymentRequest struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	InvoiceID         uint            `gorm:"not null;index" json:"invoice_id"`
	MerchantRequestID string          `gorm:"size:100" json:"merchant_request_id"`
	CheckoutRequestID string          `gorm:"size:100;uniqueIndex;not null" json:"checkout_request_id"`
	Phone             string          `gorm:"size:15;not null" json:"phone"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AccountReference  string          `gorm:"size:12" json:"account_reference"`
	Status            string          `gorm:"size:20;not null;index" json:"status"` // SENT, CONFIRMED, FAILED, EXPIRED
	ResultDesc        string          `gorm:"size:255" json:"result_desc"`          // provider's reason, kept on FAILED
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ResolvedAt        *time.Time      `json:"resolved_at"`

	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"-"`
}

func (PaymentRequest) TableName() string {
	return "payment_requests"
}
