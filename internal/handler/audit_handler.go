package handler

import (
	"net/http"
	"strconv"

	"shulepay/internal/repository"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepo *repository.CallbackAuditRepository
}

func NewAuditHandler(auditRepo *repository.CallbackAuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// List exposes the callback audit trail so operators can follow up on
// swallowed callback errors (a malformed callback may hide a real missed
// payment).
func (h *AuditHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	audits, err := h.auditRepo.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": audits})
}
