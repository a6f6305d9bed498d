// nyumbani-crm/models/tenant.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы арендатора. Статусы vacated и evicted терминальные:
// после них счета не выставляются и напоминания не отправляются.
const (
	TenantStatusActive  = "active"
	TenantStatusVacated = "vacated"
	TenantStatusEvicted = "evicted"
)

// Tenant - арендатор и условия его договора аренды.
type Tenant struct {
	gorm.Model
	FirstName   string `json:"firstName" gorm:"not null"`
	LastName    string `json:"lastName" gorm:"not null"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber" gorm:"not null"`
	NationalID  string `json:"nationalId"`
	UnitNumber  string `json:"unitNumber"`
	Status      string `json:"status" gorm:"default:'active';index"`

	PropertyID uint     `json:"propertyId" gorm:"index;not null"`
	Property   Property `json:"-" gorm:"foreignKey:PropertyID"`

	// Условия аренды.
	RentAmount      float64    `json:"rentAmount" gorm:"type:numeric(12,2);not null"`
	DueDayOfMonth   int        `json:"dueDayOfMonth" gorm:"default:1"`
	GracePeriodDays int        `json:"gracePeriodDays" gorm:"default:5"`
	LeaseStartDate  time.Time  `json:"leaseStartDate" gorm:"not null"`
	LeaseEndDate    *time.Time `json:"leaseEndDate"`

	// Предпочтения по каналам уведомлений: {"email": true, "sms": true}.
	// Отсутствие настройки означает, что канал включен.
	NotificationPreferences JSONB `json:"notificationPreferences" gorm:"type:jsonb"`
}

// FullName возвращает полное имя арендатора.
func (t *Tenant) FullName() string {
	return t.FirstName + " " + t.LastName
}

// IsActive сообщает, действует ли аренда.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// WantsChannel проверяет, включен ли у арендатора канал уведомлений
// ("sms" или "email"). По умолчанию канал считается включенным.
func (t *Tenant) WantsChannel(channel string) bool {
	if t.NotificationPreferences == nil {
		return true
	}
	v, ok := t.NotificationPreferences[channel]
	if !ok {
		return true
	}
	enabled, ok := v.(bool)
	return !ok || enabled
}
