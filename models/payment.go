// nyumbani-crm/models/payment.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы платежа.
const (
	PaymentStatusPendingDue          = "pending_due"          // счет выставлен, оплата не поступала
	PaymentStatusPendingConfirmation = "pending_confirmation" // STK push отправлен, ждем callback
	PaymentStatusConfirmed           = "confirmed"
	PaymentStatusFailed              = "failed"
	PaymentStatusPartiallyPaid       = "partially_paid"
)

// Типы платежа.
const (
	PaymentTypeRent    = "rent"
	PaymentTypeDeposit = "deposit"
	PaymentTypeUtility = "utility"
)

// Статусы синхронизации офлайн-платежей.
const (
	SyncStatusSynced      = "synced"
	SyncStatusPendingSync = "pending_sync"
	SyncStatusFailed      = "sync_failed"
)

// PaymentMethodMpesa - способ оплаты, для которого синхронизатор
// проверяет транзакцию через шлюз.
const PaymentMethodMpesa = "M-Pesa"

// Payment - платеж (или выставленный счет) по конкретному арендатору.
//
// BillingPeriod хранит расчетный месяц в формате "2006-01". Уникальный
// индекс (tenant_id, billing_period, payment_type) гарантирует не больше
// одной записи аренды на арендатора и месяц: повторная вставка дает
// gorm.ErrDuplicatedKey, что генератор счетов трактует как "уже выставлен".
type Payment struct {
	gorm.Model
	Amount float64 `json:"amount" gorm:"type:numeric(12,2);not null"`

	TenantID uint   `json:"tenantId" gorm:"uniqueIndex:idx_tenant_cycle_type;not null"`
	Tenant   Tenant `json:"-" gorm:"foreignKey:TenantID"`

	BillingPeriod string `json:"billingPeriod" gorm:"uniqueIndex:idx_tenant_cycle_type;size:7;not null"`
	PaymentType   string `json:"paymentType" gorm:"uniqueIndex:idx_tenant_cycle_type;default:'rent'"`

	PaymentDate   time.Time `json:"paymentDate"`
	PaymentMethod string    `json:"paymentMethod" gorm:"default:'M-Pesa'"`
	Status        string    `json:"status" gorm:"default:'pending_confirmation';index"`

	TransactionID string  `json:"transactionId" gorm:"index"`
	AccountNumber string  `json:"accountNumber"`
	Fees          float64 `json:"fees" gorm:"type:numeric(12,2);default:0"`
	Description   string  `json:"description"`
	ReceiptNumber string  `json:"receiptNumber" gorm:"index"`

	// Офлайн-платежи: внесены вручную без связи со шлюзом
	// и ждут сверки фоновым синхронизатором.
	IsOffline        bool   `json:"isOffline" gorm:"default:false"`
	SyncStatus       string `json:"syncStatus" gorm:"default:'synced';index"`
	SyncAttempts     int    `json:"syncAttempts" gorm:"default:0"`
	OfflineReference string `json:"offlineReference"`
}
