package handler

import (
	"errors"
	"net/http"

	"shulepay/internal/domain"
	"shulepay/internal/repository"
	"shulepay/internal/service"
	"shulepay/pkg/mpesa"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MpesaHandler struct {
	svc         *service.PaymentService
	requestRepo *repository.PaymentRequestRepository
}

func NewMpesaHandler(svc *service.PaymentService, requestRepo *repository.PaymentRequestRepository) *MpesaHandler {
	return &MpesaHandler{svc: svc, requestRepo: requestRepo}
}

// Initiate sends an STK push for an invoice. The response only says the
// prompt was sent; confirmation is observed by polling Status.
func (h *MpesaHandler) Initiate(c *gin.Context) {
	var req struct {
		InvoiceID uint   `json:"invoice_id" binding:"required"`
		Phone     string `json:"phone" binding:"required"`
		Amount    string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}
	pr, err := h.svc.InitiatePayment(c.Request.Context(), req.InvoiceID, req.Phone, amount)
	if err != nil {
		var authErr *mpesa.AuthError
		var gwErr *mpesa.GatewayError
		switch {
		case errors.Is(err, mpesa.ErrInvalidAmount), errors.Is(err, mpesa.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		case errors.As(err, &authErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway authentication failed"})
		case errors.As(err, &gwErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "mpesa init failed: " + gwErr.Message, "code": gwErr.Code})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment initiation failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"checkout_request_id": pr.CheckoutRequestID,
		"merchant_request_id": pr.MerchantRequestID,
		"status":              pr.Status,
		"amount":              pr.Amount,
		"message":             "Check your phone to complete the M-Pesa payment.",
	})
}

// Status is the poller surface for a waiting payer.
func (h *MpesaHandler) Status(c *gin.Context) {
	pr, err := h.requestRepo.GetByCheckoutRequestID(c.Param("checkout_request_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	var message string
	switch pr.Status {
	case domain.RequestStatusSent:
		message = "Awaiting confirmation. Complete the prompt on your phone."
	case domain.RequestStatusConfirmed:
		message = "Payment received."
	case domain.RequestStatusFailed:
		message = "Payment failed: " + pr.ResultDesc
	case domain.RequestStatusExpired:
		message = "Payment not completed. Please try again."
	}
	c.JSON(http.StatusOK, gin.H{
		"checkout_request_id": pr.CheckoutRequestID,
		"status":              pr.Status,
		"message":             message,
		"resolved_at":         pr.ResolvedAt,
	})
}
