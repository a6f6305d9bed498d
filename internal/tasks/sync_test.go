// nyumbani-crm/internal/tasks/sync_test.go
package tasks

import (
	"context"
	"testing"
	"time"

	"nyumbani-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createOfflinePayment(t *testing.T, db *gorm.DB, tenantID uint, method, txID string) *models.Payment {
	t.Helper()
	payment := models.Payment{
		TenantID:      tenantID,
		Amount:        25000,
		PaymentType:   models.PaymentTypeRent,
		PaymentMethod: method,
		PaymentDate:   time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
		BillingPeriod: "2026-03",
		Status:        models.PaymentStatusConfirmed,
		TransactionID: txID,
		IsOffline:     true,
		SyncStatus:    models.SyncStatusPendingSync,
	}
	require.NoError(t, db.Create(&payment).Error)
	return &payment
}

func TestSyncVerifiedPaymentMarkedSynced(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{Verified: map[string]bool{"TX-100": true}}
	runner := newTestRunner(db, &fakeNotifier{}, gateway, time.Now().UTC())

	tenant := createTenant(t, db, 1, 5)
	payment := createOfflinePayment(t, db, tenant.ID, models.PaymentMethodMpesa, "TX-100")

	require.NoError(t, runner.SyncOfflinePayments(context.Background()))

	var got models.Payment
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
	assert.False(t, got.IsOffline)
	assert.Equal(t, []string{"TX-100"}, gateway.Calls)

	var audit models.AuditLog
	require.NoError(t, db.Where("action = ? AND record_id = ?",
		"PAYMENT_SYNC", payment.ID).First(&audit).Error)
}

func TestSyncFailedVerificationStaysOffline(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{Verified: map[string]bool{}} // шлюз не подтверждает
	runner := newTestRunner(db, &fakeNotifier{}, gateway, time.Now().UTC())

	tenant := createTenant(t, db, 1, 5)
	payment := createOfflinePayment(t, db, tenant.ID, models.PaymentMethodMpesa, "TX-200")

	require.NoError(t, runner.SyncOfflinePayments(context.Background()))

	var got models.Payment
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, models.SyncStatusFailed, got.SyncStatus)
	assert.True(t, got.IsOffline)
	assert.Equal(t, 1, got.SyncAttempts)

	// Следующий прогон повторяет попытку.
	require.NoError(t, runner.SyncOfflinePayments(context.Background()))
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, 2, got.SyncAttempts)
	assert.True(t, got.IsOffline)
}

func TestSyncGatewayErrorCountsAsAttempt(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{Err: assert.AnError}
	runner := newTestRunner(db, &fakeNotifier{}, gateway, time.Now().UTC())

	tenant := createTenant(t, db, 1, 5)
	payment := createOfflinePayment(t, db, tenant.ID, models.PaymentMethodMpesa, "TX-300")

	require.NoError(t, runner.SyncOfflinePayments(context.Background()))

	var got models.Payment
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, models.SyncStatusFailed, got.SyncStatus)
	assert.True(t, got.IsOffline)
	assert.Equal(t, 1, got.SyncAttempts)
}

func TestSyncStopsRetryingAtAttemptCap(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{Verified: map[string]bool{}}
	runner := newTestRunner(db, &fakeNotifier{}, gateway, time.Now().UTC())

	tenant := createTenant(t, db, 1, 5)
	payment := createOfflinePayment(t, db, tenant.ID, models.PaymentMethodMpesa, "TX-400")
	require.NoError(t, db.Model(payment).Updates(map[string]interface{}{
		"sync_status":   models.SyncStatusFailed,
		"sync_attempts": runner.MaxSyncAttempts,
	}).Error)

	require.NoError(t, runner.SyncOfflinePayments(context.Background()))

	assert.Empty(t, gateway.Calls)
	var got models.Payment
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, runner.MaxSyncAttempts, got.SyncAttempts)
}

func TestSyncNonMpesaPaymentSkipsGateway(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{}
	runner := newTestRunner(db, &fakeNotifier{}, gateway, time.Now().UTC())

	tenant := createTenant(t, db, 1, 5)
	payment := createOfflinePayment(t, db, tenant.ID, "Cash", "")

	require.NoError(t, runner.SyncOfflinePayments(context.Background()))

	var got models.Payment
	require.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
	assert.False(t, got.IsOffline)
	assert.Empty(t, gateway.Calls)
}
