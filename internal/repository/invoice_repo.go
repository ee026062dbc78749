package repository

import (
	"time"

	"shulepay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	if inv.Balance.IsZero() && inv.PaidAmount.IsZero() {
		inv.Balance = inv.TotalAmount
	}
	return r.db.Create(inv).Error
}

func (r *InvoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.First(&inv, id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetWithPayments(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.Preload("Payments").First(&inv, id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ApplyPayment increases paid_amount and recomputes balance inside the
// caller's transaction. The increment is done in SQL so two confirmations
// for the same invoice serialize on the row instead of overwriting each
// other; confirmations for different invoices do not block. Balance is
// clamped at zero - overpayment raises paid_amount past the total.
func (r *InvoiceRepository) ApplyPayment(tx *gorm.DB, invoiceID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]interface{}{
			"paid_amount": gorm.Expr("paid_amount + ?", amount),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return tx.Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("balance", gorm.Expr("CASE WHEN total_amount > paid_amount THEN total_amount - paid_amount ELSE 0 END")).Error
}
