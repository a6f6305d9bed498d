// nyumbani-crm/models/mpesa_transaction.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы M-Pesa транзакции.
const (
	MpesaTxInitiated = "initiated"
	MpesaTxCompleted = "completed"
	MpesaTxFailed    = "failed"
)

// MpesaTransaction - запись об STK push запросе и ответившем на него
// callback'е. Callback шлюза сопоставляется по CheckoutRequestID.
type MpesaTransaction struct {
	gorm.Model
	PaymentID *uint    `json:"paymentId" gorm:"index"`
	Payment   *Payment `json:"-" gorm:"foreignKey:PaymentID"`

	MerchantRequestID  string `json:"merchantRequestId" gorm:"index"`
	CheckoutRequestID  string `json:"checkoutRequestId" gorm:"uniqueIndex"`
	ResultCode         int    `json:"resultCode"`
	ResultDesc         string `json:"resultDesc"`
	Amount             float64 `json:"amount" gorm:"type:numeric(12,2);not null"`
	MpesaReceiptNumber string  `json:"mpesaReceiptNumber"`
	PhoneNumber        string  `json:"phoneNumber" gorm:"not null"`
	Status             string  `json:"status" gorm:"default:'initiated'"`

	RawRequest  JSONB      `json:"rawRequest" gorm:"type:jsonb"`
	RawCallback JSONB      `json:"rawCallback" gorm:"type:jsonb"`
	CompletedAt *time.Time `json:"completedAt"`
}
