// nyumbani-crm/models/audit_log.go
package models

import "time"

// AuditLog - журнал действий, только на запись. Основная логика никогда
// не изменяет и не удаляет эти записи; ретеншн - внешняя забота.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"userId" gorm:"index"`
	Action    string    `json:"action" gorm:"not null"`
	TableName string    `json:"tableName"`
	RecordID  uint      `json:"recordId"`
	OldValue  JSONB     `json:"oldValue" gorm:"type:jsonb"`
	NewValue  JSONB     `json:"newValue" gorm:"type:jsonb"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
}
