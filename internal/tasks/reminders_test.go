// nyumbani-crm/internal/tasks/reminders_test.go
package tasks

import (
	"context"
	"testing"
	"time"

	"nyumbani-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpcomingReminderWithinWindow(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	// Срок 10-го, сегодня 8-е: до платежа 2 дня, внутри окна в 3 дня.
	now := time.Date(2026, time.March, 8, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 10, 5)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))

	require.Len(t, notifier.SMS, 1)
	require.Len(t, notifier.Emails, 1)
	assert.Contains(t, notifier.SMS[0].Body, "2026-03-10")

	var entry models.ReminderLog
	require.NoError(t, db.Where("tenant_id = ? AND kind = ?",
		tenant.ID, models.ReminderKindUpcoming).First(&entry).Error)
	assert.Equal(t, "2026-03", entry.BillingPeriod)
	assert.Equal(t, "sms,email", entry.Channels)
}

func TestUpcomingReminderOutsideWindow(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	// До платежа 7 дней - окно в 3 дня еще не наступило.
	now := time.Date(2026, time.March, 3, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	createTenant(t, db, 10, 5)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))
	assert.Empty(t, notifier.SMS)
	assert.Empty(t, notifier.Emails)
}

func TestUpcomingReminderNotSentOnDueDay(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	// В сам день платежа напоминание "о приближении" уже не шлется.
	now := time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	createTenant(t, db, 10, 5)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))
	assert.Empty(t, notifier.SMS)
}

func TestUpcomingReminderSuppressedByConfirmedPayment(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.March, 8, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 10, 5)
	paid := models.Payment{
		TenantID:      tenant.ID,
		Amount:        tenant.RentAmount,
		PaymentType:   models.PaymentTypeRent,
		BillingPeriod: "2026-03",
		Status:        models.PaymentStatusConfirmed,
		PaymentDate:   now,
	}
	require.NoError(t, db.Create(&paid).Error)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))
	assert.Empty(t, notifier.SMS)
	assert.Empty(t, notifier.Emails)
}

func TestUpcomingReminderSentOncePerCycle(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.March, 8, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	createTenant(t, db, 10, 5)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))
	require.NoError(t, runner.SendUpcomingReminders(context.Background()))

	assert.Len(t, notifier.SMS, 1)
	assert.Len(t, notifier.Emails, 1)
}

func TestOverdueReminderFiresAfterGracePeriod(t *testing.T) {
	// Срок 1-го, льготный период 5 дней: эффективная дата 6-е.
	// 6-го напоминание еще не шлется, 7-го - уже да.
	for _, tc := range []struct {
		name  string
		day   int
		fires bool
	}{
		{"on effective due date", 6, false},
		{"day after effective due date", 7, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			notifier := &fakeNotifier{}
			now := time.Date(2026, time.March, tc.day, 9, 0, 0, 0, time.UTC)
			runner := newTestRunner(db, notifier, &fakeGateway{}, now)

			createTenant(t, db, 1, 5)

			require.NoError(t, runner.SendOverdueReminders(context.Background()))
			if tc.fires {
				require.Len(t, notifier.SMS, 1)
				assert.Contains(t, notifier.SMS[0].Body, "URGENT")
			} else {
				assert.Empty(t, notifier.SMS)
			}
		})
	}
}

func TestOverdueReminderIncludesLateFee(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	// Срок 1-го + 5 дней льготы, сегодня 11-е: просрочка 10 дней.
	now := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 1, 5)
	require.NoError(t, db.Model(&models.Property{}).
		Where("id = ?", tenant.PropertyID).
		Update("late_fee_formula", "rent * 0.01 * days_late").Error)

	require.NoError(t, runner.SendOverdueReminders(context.Background()))

	require.Len(t, notifier.SMS, 1)
	// 25000 * 0.01 * 10 = 2500.
	assert.Contains(t, notifier.SMS[0].Body, "late fee of KSh 2500.00")
}

func TestOverdueReminderIgnoresInvalidFormula(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 1, 5)
	require.NoError(t, db.Model(&models.Property{}).
		Where("id = ?", tenant.PropertyID).
		Update("late_fee_formula", "rent *** oops").Error)

	require.NoError(t, runner.SendOverdueReminders(context.Background()))

	require.Len(t, notifier.SMS, 1)
	assert.NotContains(t, notifier.SMS[0].Body, "late fee")
}

func TestOverdueReminderSentOncePerCycle(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	createTenant(t, db, 1, 5)

	require.NoError(t, runner.SendOverdueReminders(context.Background()))
	require.NoError(t, runner.SendOverdueReminders(context.Background()))

	assert.Len(t, notifier.SMS, 1)
}

func TestUpcomingReminderUsesConfiguredTemplate(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2026, time.March, 8, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 10, 5)
	tpl := models.NotificationTemplate{
		Name:   "upcoming_reminder",
		Type:   "sms",
		BodyEn: "Habari {{tenant_name}}, KSh {{amount}} due {{due_date}}.",
		BodySw: "Habari {{tenant_name}}, KSh {{amount}} inadaiwa {{due_date}}.",
	}
	require.NoError(t, db.Create(&tpl).Error)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))

	require.Len(t, notifier.SMS, 1)
	assert.Equal(t, "Habari Wanjiku Kamau, KSh 25000.00 due 2026-03-10.", notifier.SMS[0].Body)

	// Каждая доставка оставляет след в таблице уведомлений.
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ? AND status = ?", tenant.ID, "sent").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestReminderChannelFailureDoesNotBlockOtherChannel(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{SMSErr: assert.AnError}
	now := time.Date(2026, time.March, 8, 6, 0, 0, 0, time.UTC)
	runner := newTestRunner(db, notifier, &fakeGateway{}, now)

	tenant := createTenant(t, db, 10, 5)

	require.NoError(t, runner.SendUpcomingReminders(context.Background()))

	assert.Empty(t, notifier.SMS)
	require.Len(t, notifier.Emails, 1)

	// В журнале только успешный канал.
	var entry models.ReminderLog
	require.NoError(t, db.Where("tenant_id = ?", tenant.ID).First(&entry).Error)
	assert.Equal(t, "email", entry.Channels)
}
