// nyumbani-crm/internal/tasks/sync.go
package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"nyumbani-crm/models"

	"gorm.io/gorm"
)

// SyncOfflinePayments сверяет платежи, внесенные в офлайн-режиме,
// с платежным шлюзом. Запускается по интервалу (каждые 15-30 минут).
//
// За один прогон обрабатывается не больше SyncBatchLimit записей
// со статусом pending_sync и числом попыток меньше MaxSyncAttempts.
// M-Pesa платежи с transaction_id проверяются через шлюз: подтвержденные
// помечаются synced (с записью в журнал аудита), неподтвержденные и
// упавшие с ошибкой - sync_failed с инкрементом sync_attempts, запись
// остается офлайн до следующего прогона.
//
// Ошибка проверки одного платежа не прерывает батч; весь батч
// коммитится одной транзакцией.
func (r *Runner) SyncOfflinePayments(ctx context.Context) error {
	slog.Info("Запуск синхронизации офлайн-платежей")

	var payments []models.Payment
	if err := r.DB.WithContext(ctx).Preload("Tenant").
		Where("is_offline = ? AND sync_status IN ? AND sync_attempts < ?",
			true, []string{models.SyncStatusPendingSync, models.SyncStatusFailed}, r.MaxSyncAttempts).
		Limit(r.SyncBatchLimit).
		Find(&payments).Error; err != nil {
		slog.Error("Не удалось получить офлайн-платежи", "error", err)
		return err
	}

	if len(payments) == 0 {
		slog.Info("Офлайн-платежей для синхронизации нет")
		return nil
	}

	synced, failed := 0, 0
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range payments {
			payment := &payments[i]

			verified := true
			var verr error
			if payment.PaymentMethod == models.PaymentMethodMpesa && payment.TransactionID != "" {
				verified, verr = r.Gateway.VerifyTransaction(ctx, payment.TransactionID)
			}

			if verr != nil || !verified {
				// Неподтвержденный платеж остается офлайн и будет
				// переповторен следующим прогоном (до MaxSyncAttempts).
				if verr != nil {
					slog.Error("Ошибка проверки платежа через шлюз",
						"payment_id", payment.ID, "tenant_id", payment.TenantID, "error", verr)
				} else {
					slog.Warn("Шлюз не подтвердил транзакцию",
						"payment_id", payment.ID, "transaction_id", payment.TransactionID)
				}
				payment.SyncStatus = models.SyncStatusFailed
				payment.SyncAttempts++
				if err := tx.Model(payment).Select("sync_status", "sync_attempts").
					Updates(payment).Error; err != nil {
					return err
				}
				failed++
				continue
			}

			payment.SyncStatus = models.SyncStatusSynced
			payment.IsOffline = false
			if err := tx.Model(payment).Select("sync_status", "is_offline").
				Updates(map[string]interface{}{
					"sync_status": models.SyncStatusSynced,
					"is_offline":  false,
				}).Error; err != nil {
				return err
			}

			audit := models.AuditLog{
				Action:    "PAYMENT_SYNC",
				TableName: "payments",
				RecordID:  payment.ID,
				Details:   fmt.Sprintf("Payment %d synced from offline mode", payment.ID),
			}
			if err := tx.Create(&audit).Error; err != nil {
				return err
			}
			synced++
		}
		return nil
	})
	if err != nil {
		slog.Error("Синхронизация офлайн-платежей откатилась", "error", err)
		return err
	}

	slog.Info("Синхронизация офлайн-платежей завершена", "synced", synced, "failed", failed)
	return nil
}
