// nyumbani-crm/internal/tasks/runner.go
package tasks

import (
	"context"
	"time"

	"nyumbani-crm/internal/notify"

	"gorm.io/gorm"
)

// Gateway - платежный шлюз с точки зрения фоновых задач.
// Реализуется клиентом Daraja API (internal/mpesa).
type Gateway interface {
	VerifyTransaction(ctx context.Context, transactionID string) (bool, error)
}

// Значения по умолчанию для настроек Runner.
const (
	DefaultReminderDaysBefore = 3
	DefaultSyncBatchLimit     = 1000
	DefaultMaxSyncAttempts    = 5
)

// Runner выполняет фоновые задачи рентного цикла. Все зависимости
// (БД, уведомления, шлюз, часы) передаются явно: никаких глобальных
// синглтонов, жизненный цикл контролирует вызывающая сторона.
type Runner struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Gateway  Gateway

	// Now подменяется в тестах; по умолчанию time.Now в UTC.
	Now func() time.Time

	// Paybill подставляется в тексты SMS/email с реквизитами оплаты.
	Paybill string

	ReminderDaysBefore int
	SyncBatchLimit     int
	MaxSyncAttempts    int
}

// NewRunner собирает Runner с настройками по умолчанию.
func NewRunner(db *gorm.DB, notifier notify.Notifier, gateway Gateway, paybill string) *Runner {
	return &Runner{
		DB:                 db,
		Notifier:           notifier,
		Gateway:            gateway,
		Now:                func() time.Time { return time.Now().UTC() },
		Paybill:            paybill,
		ReminderDaysBefore: DefaultReminderDaysBefore,
		SyncBatchLimit:     DefaultSyncBatchLimit,
		MaxSyncAttempts:    DefaultMaxSyncAttempts,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
