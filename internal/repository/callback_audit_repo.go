package repository

import (
	"shulepay/internal/models"

	"gorm.io/gorm"
)

type CallbackAuditRepository struct {
	db *gorm.DB
}

func NewCallbackAuditRepository(db *gorm.DB) *CallbackAuditRepository {
	return &CallbackAuditRepository{db: db}
}

func (r *CallbackAuditRepository) Create(a *models.CallbackAudit) error {
	return r.db.Create(a).Error
}

func (r *CallbackAuditRepository) ListRecent(limit int) ([]models.CallbackAudit, error) {
	var audits []models.CallbackAudit
	err := r.db.Order("created_at DESC").Limit(limit).Find(&audits).Error
	return audits, err
}
