package models

import (
	"time"
)

// AuditLog records who did what to which entity
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;default:0;index" json:"user_id"` // 0 for system jobs
	Action    string    `gorm:"size:50;not null" json:"action"`          // CREATE, UPDATE, CANCEL, PAYMENT, FORGIVE...
	Entity    string    `gorm:"size:50;not null;index" json:"entity"`    // Sale, Installment, Lot, Customer
	EntityID  uint      `gorm:"index" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionCancel       = "CANCEL"
	AuditActionComplete     = "COMPLETE"
	AuditActionSuspend      = "SUSPEND"
	AuditActionResume       = "RESUME"
	AuditActionPayment      = "PAYMENT"
	AuditActionForgive      = "FORGIVE"
	AuditActionReset        = "RESET_PAYMENT"
	AuditActionModifyAmount = "MODIFY_AMOUNT"
	AuditActionRegenerate   = "REGENERATE_SCHEDULE"
	AuditActionOverdueSweep = "OVERDUE_SWEEP"
)
