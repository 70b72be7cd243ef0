package model

import "time"

// Audit event features.
const (
	FeatureIrrigation = "irrigation"
	FeatureDetection  = "detection"
)

// AuditEvent records one terminal status transition of an advice record. The
// services publish these to RabbitMQ after the primary write; a worker drains
// the queue into this table.
type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Feature   string    `gorm:"size:16;not null;index" json:"feature"`
	RecordID  uint      `gorm:"not null" json:"record_id"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
