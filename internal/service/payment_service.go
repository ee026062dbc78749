package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shulepay/internal/domain"
	"shulepay/internal/models"
	"shulepay/internal/repository"
	"shulepay/pkg/mpesa"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrUnknownCallback = errors.New("no payment request matches callback")
)

type PaymentService struct {
	db          *gorm.DB
	invoiceRepo *repository.InvoiceRepository
	requestRepo *repository.PaymentRequestRepository
	paymentRepo *repository.PaymentRepository
	gateway     *mpesa.Client
}

func NewPaymentService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	requestRepo *repository.PaymentRequestRepository,
	paymentRepo *repository.PaymentRepository,
	gateway *mpesa.Client,
) *PaymentService {
	return &PaymentService{
		db:          db,
		invoiceRepo: invoiceRepo,
		requestRepo: requestRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
	}
}

// InitiatePayment sends an STK push for the invoice and records the
// in-flight request in state SENT. A gateway failure surfaces to the caller
// and is never retried here: the prompt may already be on the customer's
// phone, so retry must be a fresh user action.
func (s *PaymentService) InitiatePayment(ctx context.Context, invoiceID uint, phone string, amount decimal.Decimal) (*models.PaymentRequest, error) {
	if !amount.IsPositive() {
		return nil, mpesa.ErrInvalidAmount
	}
	normalized := mpesa.NormalizePhone(phone)
	if normalized == "" {
		return nil, mpesa.ErrInvalidPhone
	}
	inv, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            normalized,
		Amount:           amount,
		AccountReference: inv.Number,
		Description:      "Fees " + inv.Number,
	})
	if err != nil {
		return nil, err
	}
	pr := &models.PaymentRequest{
		InvoiceID:         inv.ID,
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Phone:             normalized,
		Amount:            amount,
		AccountReference:  inv.Number,
		Status:            domain.RequestStatusSent,
	}
	if len(pr.AccountReference) > 12 {
		pr.AccountReference = pr.AccountReference[:12]
	}
	if err := s.requestRepo.Create(pr); err != nil {
		return nil, fmt.Errorf("record payment request: %w", err)
	}
	log.Printf("[MPESA] STK sent invoice=%d checkout_request_id=%s amount=%s", inv.ID, pr.CheckoutRequestID, amount)
	return pr, nil
}

// ProcessCallback drives a payment request to its terminal state and
// returns the audit outcome. Safe to call any number of times per real
// event: a request already terminal is a duplicate delivery and produces no
// state change and no ledger mutation. On a successful result the ledger is
// applied in the same transaction as the status transition, so a failed
// handoff leaves the request SENT for reprocessing rather than losing the
// payment.
func (s *PaymentService) ProcessCallback(cb *mpesa.StkCallback) (string, error) {
	pr, err := s.requestRepo.GetByCheckoutRequestID(cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CallbackOutcomeUnknown, ErrUnknownCallback
		}
		return domain.CallbackOutcomeError, err
	}
	if pr.Status != domain.RequestStatusSent {
		log.Printf("[MPESA callback] checkout_request_id=%s already %s, duplicate delivery ignored", cb.CheckoutRequestID, pr.Status)
		return domain.CallbackOutcomeDuplicate, nil
	}
	now := time.Now()

	if cb.ResultCode != 0 {
		moved, err := s.requestRepo.MarkTerminal(s.db, cb.CheckoutRequestID, domain.RequestStatusFailed, cb.ResultDesc, now)
		if err != nil {
			return domain.CallbackOutcomeError, err
		}
		if !moved {
			return domain.CallbackOutcomeDuplicate, nil
		}
		log.Printf("[MPESA callback] checkout_request_id=%s FAILED code=%d desc=%s", cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)
		return domain.CallbackOutcomeFailed, nil
	}

	facts, err := cb.Facts()
	if err != nil {
		// leaves the request SENT; the sweeper will expire it if the
		// gateway never redelivers a parseable payload
		return domain.CallbackOutcomeMalformed, err
	}

	outcome := domain.CallbackOutcomeConfirmed
	err = s.db.Transaction(func(tx *gorm.DB) error {
		moved, err := s.requestRepo.MarkTerminal(tx, cb.CheckoutRequestID, domain.RequestStatusConfirmed, cb.ResultDesc, now)
		if err != nil {
			return err
		}
		if !moved {
			// lost the race to a concurrent delivery of the same callback
			outcome = domain.CallbackOutcomeDuplicate
			return nil
		}
		prID := pr.ID
		payment := &models.Payment{
			InvoiceID:        pr.InvoiceID,
			PaymentRequestID: &prID,
			Amount:           facts.Amount,
			Method:           domain.PaymentMethodMpesa,
			ReceiptRef:       facts.ReceiptNumber,
			PayerPhone:       facts.PayerPhone,
			Status:           domain.PaymentStatusCompleted,
			PaidAt:           facts.PaidAt,
		}
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			return err
		}
		return s.invoiceRepo.ApplyPayment(tx, pr.InvoiceID, facts.Amount)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// receipt already applied under a different checkout request id
			if existing, lookupErr := s.paymentRepo.GetByReceiptRef(facts.ReceiptNumber); lookupErr == nil {
				log.Printf("[MPESA callback] receipt %s already applied as payment %d, checkout_request_id=%s left as-is", facts.ReceiptNumber, existing.ID, cb.CheckoutRequestID)
			}
			return domain.CallbackOutcomeDuplicate, nil
		}
		return domain.CallbackOutcomeError, err
	}
	if outcome == domain.CallbackOutcomeConfirmed {
		log.Printf("[MPESA callback] checkout_request_id=%s CONFIRMED receipt=%s amount=%s", cb.CheckoutRequestID, facts.ReceiptNumber, facts.Amount)
	}
	return outcome, nil
}

// RecordManualPayment applies an out-of-band payment (cash, bank deposit)
// through the same ledger path as gateway confirmations.
func (s *PaymentService) RecordManualPayment(invoiceID uint, amount decimal.Decimal, method, receiptRef string) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, mpesa.ErrInvalidAmount
	}
	if _, err := s.invoiceRepo.GetByID(invoiceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	if method == "" {
		method = domain.PaymentMethodManual
	}
	if receiptRef == "" {
		receiptRef = "MAN-" + uuid.New().String()
	}
	payment := &models.Payment{
		InvoiceID:  invoiceID,
		Amount:     amount,
		Method:     method,
		ReceiptRef: receiptRef,
		Status:     domain.PaymentStatusCompleted,
		PaidAt:     time.Now(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			return err
		}
		return s.invoiceRepo.ApplyPayment(tx, invoiceID, amount)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[LEDGER] manual payment invoice=%d amount=%s receipt=%s", invoiceID, amount, receiptRef)
	return payment, nil
}
