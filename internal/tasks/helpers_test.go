// nyumbani-crm/internal/tasks/helpers_test.go
package tasks

import (
	"context"
	"testing"
	"time"

	"nyumbani-crm/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB поднимает чистую sqlite базу в памяти со всеми миграциями.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// С пулом больше одного соединения каждая ":memory:" база своя.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Property{},
		&models.Tenant{},
		&models.Payment{},
		&models.ReminderLog{},
		&models.AuditLog{},
		&models.NotificationTemplate{},
		&models.Notification{},
	))
	return db
}

// sentMessage - одно отправленное уведомление.
type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// fakeNotifier записывает отправленные сообщения вместо реальной доставки.
type fakeNotifier struct {
	Emails   []sentMessage
	SMS      []sentMessage
	EmailErr error
	SMSErr   error
}

func (f *fakeNotifier) SendEmail(recipient, subject, body string) error {
	if f.EmailErr != nil {
		return f.EmailErr
	}
	f.Emails = append(f.Emails, sentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (f *fakeNotifier) SendSMS(to, message string) error {
	if f.SMSErr != nil {
		return f.SMSErr
	}
	f.SMS = append(f.SMS, sentMessage{Recipient: to, Body: message})
	return nil
}

// fakeGateway отвечает на проверку транзакций по заранее заданной карте.
type fakeGateway struct {
	Verified map[string]bool
	Err      error
	Calls    []string
}

func (f *fakeGateway) VerifyTransaction(_ context.Context, transactionID string) (bool, error) {
	f.Calls = append(f.Calls, transactionID)
	if f.Err != nil {
		return false, f.Err
	}
	return f.Verified[transactionID], nil
}

// newTestRunner собирает Runner с фиксированными часами и фейковыми
// зависимостями.
func newTestRunner(db *gorm.DB, notifier *fakeNotifier, gateway *fakeGateway, now time.Time) *Runner {
	r := NewRunner(db, notifier, gateway, "174379")
	r.Now = func() time.Time { return now }
	return r
}

// createTenant создает объект и активного арендатора с заданными
// параметрами платежного цикла.
func createTenant(t *testing.T, db *gorm.DB, dueDay, graceDays int) *models.Tenant {
	t.Helper()

	property := models.Property{
		Name:          "Kilimani Heights",
		Address:       "Argwings Kodhek Rd",
		PropertyType:  "apartment",
		NumberOfUnits: 10,
		County:        "Nairobi",
		LandlordID:    1,
	}
	require.NoError(t, db.Create(&property).Error)

	tenant := models.Tenant{
		FirstName:       "Wanjiku",
		LastName:        "Kamau",
		Email:           "wanjiku@example.com",
		PhoneNumber:     "0712345678",
		UnitNumber:      "A1",
		Status:          models.TenantStatusActive,
		PropertyID:      property.ID,
		RentAmount:      25000,
		DueDayOfMonth:   dueDay,
		GracePeriodDays: graceDays,
		LeaseStartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&tenant).Error)
	tenant.Property = property
	return &tenant
}
