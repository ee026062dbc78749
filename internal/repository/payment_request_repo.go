package repository

import (
	"time"

	"shulepay/internal/domain"
	"shulepay/internal/models"

	"gorm.io/gorm"
)

type PaymentRequestRepository struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

func (r *PaymentRequestRepository) Create(pr *models.PaymentRequest) error {
	return r.db.Create(pr).Error
}

func (r *PaymentRequestRepository) GetByCheckoutRequestID(id string) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	err := r.db.Where("checkout_request_id = ?", id).First(&pr).Error
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *PaymentRequestRepository) ListByInvoice(invoiceID uint) ([]models.PaymentRequest, error) {
	var prs []models.PaymentRequest
	err := r.db.Where("invoice_id = ?", invoiceID).Order("created_at DESC").Find(&prs).Error
	return prs, err
}

// MarkTerminal transitions a request out of SENT. The status check and the
// update are one conditional UPDATE, so two concurrent deliveries of the
// same callback cannot both pass the idempotency check: exactly one sees
// moved=true. Terminal rows are never transitioned again.
func (r *PaymentRequestRepository) MarkTerminal(tx *gorm.DB, checkoutRequestID, status, resultDesc string, resolvedAt time.Time) (bool, error) {
	res := tx.Model(&models.PaymentRequest{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, domain.RequestStatusSent).
		Updates(map[string]interface{}{
			"status":      status,
			"result_desc": resultDesc,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireOlderThan resolves SENT requests created before the cutoff. Purely
// informational - the ledger is never touched here.
func (r *PaymentRequestRepository) ExpireOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.PaymentRequest{}).
		Where("status = ? AND created_at < ?", domain.RequestStatusSent, cutoff).
		Updates(map[string]interface{}{
			"status":      domain.RequestStatusExpired,
			"resolved_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
