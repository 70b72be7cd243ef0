package repository

import (
	"fmt"

	"gorm.io/gorm"

	"agroai-backend/internal/model"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Create(event *model.AuditEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create audit event failed: %w", err)
	}
	return nil
}
