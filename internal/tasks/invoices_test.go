// nyumbani-crm/internal/tasks/invoices_test.go
package tasks

import (
	"context"
	"testing"
	"time"

	"nyumbani-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoicesCreatesNextMonthInvoice(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	// Запуск 28 января выставляет счета за февраль.
	now := time.Date(2026, time.January, 28, 21, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 5, 3)

	require.NoError(t, runner.GenerateInvoices(context.Background()))

	var payments []models.Payment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)

	p := payments[0]
	assert.Equal(t, tenant.ID, p.TenantID)
	assert.Equal(t, "2026-02", p.BillingPeriod)
	assert.Equal(t, models.PaymentStatusPendingDue, p.Status)
	assert.Equal(t, models.PaymentTypeRent, p.PaymentType)
	assert.Equal(t, tenant.RentAmount, p.Amount)
	assert.Equal(t, time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC), p.PaymentDate.UTC())

	// Уведомления ушли по обоим каналам.
	require.Len(t, notifier.Emails, 1)
	require.Len(t, notifier.SMS, 1)
	assert.Equal(t, tenant.Email, notifier.Emails[0].Recipient)
	assert.Contains(t, notifier.SMS[0].Body, "25000.00")
}

func TestGenerateInvoicesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.January, 28, 21, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, &fakeNotifier{}, &fakeGateway{}, now)

	createTenant(t, db, 1, 5)

	require.NoError(t, runner.GenerateInvoices(context.Background()))
	require.NoError(t, runner.GenerateInvoices(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerateInvoicesSkipsAlreadyPaidCycle(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.January, 28, 21, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 1, 5)

	// Арендатор заплатил за февраль заранее.
	prepaid := models.Payment{
		TenantID:      tenant.ID,
		Amount:        tenant.RentAmount,
		PaymentType:   models.PaymentTypeRent,
		BillingPeriod: "2026-02",
		Status:        models.PaymentStatusConfirmed,
		PaymentDate:   now,
	}
	require.NoError(t, db.Create(&prepaid).Error)

	require.NoError(t, runner.GenerateInvoices(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, notifier.Emails)
	assert.Empty(t, notifier.SMS)
}

func TestGenerateInvoicesIgnoresVacatedTenants(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.January, 28, 21, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, &fakeNotifier{}, &fakeGateway{}, now)

	tenant := createTenant(t, db, 1, 5)
	require.NoError(t, db.Model(tenant).Update("status", models.TenantStatusVacated).Error)

	require.NoError(t, runner.GenerateInvoices(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestGenerateInvoicesHonorsChannelPreferences(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.January, 28, 21, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 1, 5)
	require.NoError(t, db.Model(tenant).
		Update("notification_preferences", models.JSONB{"sms": false}).Error)

	require.NoError(t, runner.GenerateInvoices(context.Background()))

	assert.Len(t, notifier.Emails, 1)
	assert.Empty(t, notifier.SMS)
}
