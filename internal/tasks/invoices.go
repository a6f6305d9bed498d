// nyumbani-crm/internal/tasks/invoices.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nyumbani-crm/models"

	"gorm.io/gorm"
)

// Статусы, при наличии которых счет за месяц считается уже выставленным.
var qualifyingStatuses = []string{
	models.PaymentStatusConfirmed,
	models.PaymentStatusPartiallyPaid,
	models.PaymentStatusPendingDue,
	models.PaymentStatusPendingConfirmation,
}

// GenerateInvoices выставляет каждому активному арендатору счет за
// следующий расчетный месяц. Задача запускается ближе к концу месяца
// и работает на опережение.
//
// Идемпотентность двухуровневая: сначала проверка существующей записи,
// затем уникальный индекс (tenant_id, billing_period, payment_type) -
// gorm.ErrDuplicatedKey при гонке двух запусков трактуется как
// "счет уже выставлен", а не как ошибка.
//
// Все вставки за прогон коммитятся одной транзакцией; при ошибке
// персистентности откатывается весь батч. Уведомления отправляются
// после коммита, сбой доставки по одному арендатору не влияет на остальных.
func (r *Runner) GenerateInvoices(ctx context.Context) error {
	today := r.now()
	cycle := NextBillingMonth(today)
	period := BillingPeriod(cycle)
	slog.Info("Запуск генерации счетов за аренду", "period", period)

	var tenants []models.Tenant
	if err := r.DB.WithContext(ctx).Preload("Property").
		Where("status = ?", models.TenantStatusActive).
		Find(&tenants).Error; err != nil {
		slog.Error("Не удалось получить список активных арендаторов", "error", err)
		return err
	}

	var created []models.Payment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tenants {
			tenant := &tenants[i]

			dueDate, _, derr := DueDates(cycle, tenant.DueDayOfMonth, tenant.GracePeriodDays)
			if derr != nil {
				// Не фатально: арендатор без корректного дня платежа просто пропускается.
				slog.Warn("Арендатор пропущен при выставлении счета",
					"tenant_id", tenant.ID, "error", derr)
				continue
			}

			var count int64
			if err := tx.Model(&models.Payment{}).
				Where("tenant_id = ? AND payment_type = ? AND billing_period = ? AND status IN ?",
					tenant.ID, models.PaymentTypeRent, period, qualifyingStatuses).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				slog.Info("Счет за период уже существует, пропускаем",
					"tenant_id", tenant.ID, "period", period)
				continue
			}

			payment := models.Payment{
				TenantID:      tenant.ID,
				Amount:        tenant.RentAmount,
				PaymentType:   models.PaymentTypeRent,
				Status:        models.PaymentStatusPendingDue,
				PaymentDate:   dueDate,
				PaymentMethod: models.PaymentMethodMpesa,
				BillingPeriod: period,
				Description:   fmt.Sprintf("Rent for %s", cycle.Format("January 2006")),
			}
			if err := tx.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					slog.Info("Счет уже вставлен параллельным запуском",
						"tenant_id", tenant.ID, "period", period)
					continue
				}
				return err
			}
			payment.Tenant = *tenant
			created = append(created, payment)
		}
		return nil
	})
	if err != nil {
		slog.Error("Генерация счетов откатилась", "error", err, "period", period)
		return err
	}

	for i := range created {
		r.notifyInvoiceCreated(&created[i])
	}

	slog.Info("Генерация счетов завершена", "period", period, "created", len(created))
	return nil
}

// notifyInvoiceCreated отправляет арендатору уведомление о выставленном
// счете по включенным у него каналам. Ошибки доставки только логируются.
func (r *Runner) notifyInvoiceCreated(p *models.Payment) {
	tenant := &p.Tenant
	dueStr := p.PaymentDate.Format("02/01/2006")

	if tenant.Email != "" && tenant.WantsChannel("email") {
		subject := fmt.Sprintf("Rent Due for %s", p.PaymentDate.Format("January 2006"))
		body := fmt.Sprintf("Dear %s,\n\nYour rent of KSh %.2f for %s is due on %s.\nPay via M-Pesa PayBill %s, Account: %s-%d.\n\nThank you.",
			tenant.FullName(), p.Amount, tenant.Property.Name, dueStr, r.Paybill, tenant.Property.Name, tenant.ID)
		if err := r.Notifier.SendEmail(tenant.Email, subject, body); err != nil {
			slog.Error("Не удалось отправить email о выставленном счете",
				"tenant_id", tenant.ID, "error", err)
		}
	}

	if tenant.PhoneNumber != "" && tenant.WantsChannel("sms") {
		msg := fmt.Sprintf("Rent of KSh %.2f is due on %s. Pay to Paybill %s, Account: %s-%d",
			p.Amount, dueStr, r.Paybill, tenant.Property.Name, tenant.ID)
		if err := r.Notifier.SendSMS(tenant.PhoneNumber, msg); err != nil {
			slog.Error("Не удалось отправить SMS о выставленном счете",
				"tenant_id", tenant.ID, "error", err)
		}
	}
}
