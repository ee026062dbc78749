package handler

import (
	"errors"
	"net/http"
	"strconv"

	"shulepay/internal/models"
	"shulepay/internal/repository"
	"shulepay/internal/service"
	"shulepay/pkg/mpesa"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	invoiceRepo *repository.InvoiceRepository
	requestRepo *repository.PaymentRequestRepository
	svc         *service.PaymentService
}

func NewInvoiceHandler(invoiceRepo *repository.InvoiceRepository, requestRepo *repository.PaymentRequestRepository, svc *service.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{invoiceRepo: invoiceRepo, requestRepo: requestRepo, svc: svc}
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req struct {
		StudentID   uint   `json:"student_id" binding:"required"`
		Number      string `json:"number" binding:"required"`
		Term        string `json:"term"`
		TotalAmount string `json:"total_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || !total.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_amount must be a positive number"})
		return
	}
	inv := &models.Invoice{
		StudentID:   req.StudentID,
		Number:      req.Number,
		Term:        req.Term,
		TotalAmount: total,
	}
	if err := h.invoiceRepo.Create(inv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "invoice number already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invoice create failed"})
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	inv, err := h.invoiceRepo.GetWithPayments(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	requests, err := h.requestRepo.ListByInvoice(inv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv, "payment_requests": requests})
}

// RecordPayment records an out-of-band payment (cash, bank) against an
// invoice. Bursar only.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	var req struct {
		Amount     string `json:"amount" binding:"required"`
		Method     string `json:"method"`
		ReceiptRef string `json:"receipt_ref"`
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
	payment, err := h.svc.RecordManualPayment(uint(id), amount, req.Method, req.ReceiptRef)
	if err != nil {
		switch {
		case errors.Is(err, mpesa.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			c.JSON(http.StatusConflict, gin.H{"error": "receipt reference already recorded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment record failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, payment)
}
