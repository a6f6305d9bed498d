// nyumbani-crm/models/reminder_log.go
package models

import "gorm.io/gorm"

// Виды напоминаний.
const (
	ReminderKindUpcoming = "upcoming"
	ReminderKindOverdue  = "overdue"
)

// ReminderLog фиксирует отправленное напоминание по ключу
// (арендатор, расчетный месяц, вид). Уникальный индекс делает повторный
// запуск ежедневной задачи идемпотентным: одно напоминание каждого вида
// на цикл, сколько бы раз задача ни сработала.
type ReminderLog struct {
	gorm.Model
	TenantID      uint   `json:"tenantId" gorm:"uniqueIndex:idx_reminder_once;not null"`
	BillingPeriod string `json:"billingPeriod" gorm:"uniqueIndex:idx_reminder_once;size:7;not null"`
	Kind          string `json:"kind" gorm:"uniqueIndex:idx_reminder_once;not null"`
	Channels      string `json:"channels"` // например "sms,email"
}
