package handler

import (
	"io"
	"log"
	"net/http"

	"shulepay/internal/domain"
	"shulepay/internal/models"
	"shulepay/internal/repository"
	"shulepay/internal/service"
	"shulepay/pkg/mpesa"

	"github.com/gin-gonic/gin"
)

type MpesaWebhookHandler struct {
	svc       *service.PaymentService
	auditRepo *repository.CallbackAuditRepository
}

func NewMpesaWebhookHandler(svc *service.PaymentService, auditRepo *repository.CallbackAuditRepository) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{svc: svc, auditRepo: auditRepo}
}

// Handle processes the gateway's asynchronous STK result. The endpoint
// always acknowledges, whatever happened internally - a non-ack would
// trigger provider-side redelivery storms. Errors are never surfaced to the
// payer; they land in the callback audit trail for operational follow-up.
func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[MPESA callback] read body: %v", err)
		ack(c)
		return
	}
	log.Printf("[MPESA callback] raw body: %s", string(body))
	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		log.Printf("[MPESA callback] %v", err)
		h.audit("", domain.CallbackOutcomeMalformed, err.Error(), body, c)
		ack(c)
		return
	}
	outcome, err := h.svc.ProcessCallback(cb)
	detail := cb.ResultDesc
	if err != nil {
		log.Printf("[MPESA callback] checkout_request_id=%s outcome=%s: %v", cb.CheckoutRequestID, outcome, err)
		detail = err.Error()
	}
	h.audit(cb.CheckoutRequestID, outcome, detail, body, c)
	ack(c)
}

func (h *MpesaWebhookHandler) audit(checkoutRequestID, outcome, detail string, body []byte, c *gin.Context) {
	if err := h.auditRepo.Create(&models.CallbackAudit{
		CheckoutRequestID: checkoutRequestID,
		Outcome:           outcome,
		Detail:            detail,
		RawPayload:        string(body),
		IP:                c.ClientIP(),
	}); err != nil {
		log.Printf("[MPESA callback] audit write failed: %v", err)
	}
}

func ack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
