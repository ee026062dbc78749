package repository

import (
	"shulepay/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts an immutable payment record. Runs in the caller's
// transaction so the row and the invoice update commit together.
func (r *PaymentRepository) Create(tx *gorm.DB, p *models.Payment) error {
	return tx.Create(p).Error
}

func (r *PaymentRepository) GetByReceiptRef(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("receipt_ref = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByInvoice(invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("invoice_id = ?", invoiceID).Order("paid_at ASC").Find(&payments).Error
	return payments, err
}
