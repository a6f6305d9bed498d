// nyumbani-crm/internal/tasks/reminders.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nyumbani-crm/models"

	"github.com/Knetic/govaluate"
	"gorm.io/gorm"
)

// SendUpcomingReminders отправляет напоминания арендаторам, у которых
// срок оплаты наступает в ближайшие ReminderDaysBefore дней и за текущий
// месяц еще нет подтвержденного платежа. Запускается ежедневно утром.
//
// Повторный запуск в тот же день ничего не шлет: отправка фиксируется
// в ReminderLog по ключу (арендатор, месяц, вид).
func (r *Runner) SendUpcomingReminders(ctx context.Context) error {
	today := DateOf(r.now())
	period := BillingPeriod(today)
	slog.Info("Запуск задачи: напоминания о приближающемся сроке оплаты", "period", period)

	tenants, err := r.activeTenants(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for i := range tenants {
		tenant := &tenants[i]

		dueDate, _, derr := DueDates(today, tenant.DueDayOfMonth, tenant.GracePeriodDays)
		if derr != nil {
			slog.Warn("Арендатор пропущен: не настроен день платежа",
				"tenant_id", tenant.ID, "error", derr)
			continue
		}

		// Напоминаем только если дата строго в будущем и внутри окна.
		daysUntil := int(dueDate.Sub(today).Hours() / 24)
		if !dueDate.After(today) || daysUntil > r.ReminderDaysBefore {
			continue
		}

		skip, err := r.shouldSkipReminder(ctx, tenant.ID, period, models.ReminderKindUpcoming)
		if err != nil {
			slog.Error("Ошибка проверки состояния напоминаний", "tenant_id", tenant.ID, "error", err)
			continue
		}
		if skip {
			continue
		}

		msg := fmt.Sprintf("Hi %s, just a friendly reminder that your rent of KSh %.2f for %s is due on %s. Please pay via M-Pesa PayBill %s Account %s-%d. Thank you!",
			tenant.FullName(), tenant.RentAmount, tenant.Property.Name,
			dueDate.Format("2006-01-02"), r.Paybill, tenant.Property.Name, tenant.ID)
		msg = r.renderTemplate("upcoming_reminder", msg, map[string]string{
			"tenant_name": tenant.FullName(),
			"amount":      fmt.Sprintf("%.2f", tenant.RentAmount),
			"property":    tenant.Property.Name,
			"due_date":    dueDate.Format("2006-01-02"),
			"paybill":     r.Paybill,
		})

		channels := r.dispatch(tenant, "Rent Reminder", msg)
		if len(channels) == 0 {
			continue
		}
		r.recordReminder(ctx, tenant.ID, period, models.ReminderKindUpcoming, channels)
		sent++
	}

	slog.Info("Напоминания о приближающемся сроке отправлены", "count", sent)
	return nil
}

// SendOverdueReminders отправляет срочные напоминания арендаторам,
// у которых сегодня уже строго позже эффективной даты платежа
// (день платежа + льготный период), а подтвержденного платежа за
// текущий месяц нет. Запускается ежедневно, позже утренней задачи.
func (r *Runner) SendOverdueReminders(ctx context.Context) error {
	today := DateOf(r.now())
	period := BillingPeriod(today)
	slog.Info("Запуск задачи: напоминания о просроченной оплате", "period", period)

	tenants, err := r.activeTenants(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for i := range tenants {
		tenant := &tenants[i]

		dueDate, effectiveDue, derr := DueDates(today, tenant.DueDayOfMonth, tenant.GracePeriodDays)
		if derr != nil {
			slog.Warn("Арендатор пропущен: не настроен день платежа",
				"tenant_id", tenant.ID, "error", derr)
			continue
		}

		if !today.After(effectiveDue) {
			continue
		}

		skip, err := r.shouldSkipReminder(ctx, tenant.ID, period, models.ReminderKindOverdue)
		if err != nil {
			slog.Error("Ошибка проверки состояния напоминаний", "tenant_id", tenant.ID, "error", err)
			continue
		}
		if skip {
			continue
		}

		daysLate := int(today.Sub(dueDate).Hours() / 24)
		msg := fmt.Sprintf("URGENT: Hi %s, your rent of KSh %.2f for %s due on %s is now overdue. Please make your payment immediately to M-Pesa PayBill %s Account %s-%d to avoid further penalties.",
			tenant.FullName(), tenant.RentAmount, tenant.Property.Name,
			effectiveDue.Format("2006-01-02"), r.Paybill, tenant.Property.Name, tenant.ID)
		msg = r.renderTemplate("overdue_reminder", msg, map[string]string{
			"tenant_name": tenant.FullName(),
			"amount":      fmt.Sprintf("%.2f", tenant.RentAmount),
			"property":    tenant.Property.Name,
			"due_date":    effectiveDue.Format("2006-01-02"),
			"paybill":     r.Paybill,
		})

		if fee := lateFee(tenant, daysLate); fee > 0 {
			msg += fmt.Sprintf(" A late fee of KSh %.2f has accrued.", fee)
		}

		channels := r.dispatch(tenant, "URGENT: Overdue Rent Notice", msg)
		if len(channels) == 0 {
			continue
		}
		r.recordReminder(ctx, tenant.ID, period, models.ReminderKindOverdue, channels)
		sent++
	}

	slog.Info("Напоминания о просрочке отправлены", "count", sent)
	return nil
}

// activeTenants возвращает всех активных арендаторов с предзагруженным объектом.
func (r *Runner) activeTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := r.DB.WithContext(ctx).Preload("Property").
		Where("status = ?", models.TenantStatusActive).
		Find(&tenants).Error; err != nil {
		slog.Error("Не удалось получить список активных арендаторов", "error", err)
		return nil, err
	}
	return tenants, nil
}

// shouldSkipReminder: напоминание не шлется, если за цикл уже есть
// подтвержденный платеж или напоминание этого вида уже отправлялось.
func (r *Runner) shouldSkipReminder(ctx context.Context, tenantID uint, period, kind string) (bool, error) {
	var confirmed int64
	if err := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("tenant_id = ? AND payment_type = ? AND billing_period = ? AND status = ?",
			tenantID, models.PaymentTypeRent, period, models.PaymentStatusConfirmed).
		Count(&confirmed).Error; err != nil {
		return false, err
	}
	if confirmed > 0 {
		return true, nil
	}

	var reminded int64
	if err := r.DB.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("tenant_id = ? AND billing_period = ? AND kind = ?", tenantID, period, kind).
		Count(&reminded).Error; err != nil {
		return false, err
	}
	return reminded > 0, nil
}

// dispatch отправляет сообщение по включенным каналам арендатора и
// возвращает список каналов, по которым доставка удалась. Сбой одного
// канала не мешает другому и не прерывает обработку остальных арендаторов.
func (r *Runner) dispatch(tenant *models.Tenant, subject, message string) []string {
	var channels []string

	if tenant.PhoneNumber != "" && tenant.WantsChannel("sms") {
		err := r.Notifier.SendSMS(tenant.PhoneNumber, message)
		if err != nil {
			slog.Error("Не удалось отправить SMS напоминание", "tenant_id", tenant.ID, "error", err)
		} else {
			channels = append(channels, "sms")
		}
		r.logNotification(tenant.ID, "sms", err)
	}

	if tenant.Email != "" && tenant.WantsChannel("email") {
		err := r.Notifier.SendEmail(tenant.Email, subject, message)
		if err != nil {
			slog.Error("Не удалось отправить email напоминание", "tenant_id", tenant.ID, "error", err)
		} else {
			channels = append(channels, "email")
		}
		r.logNotification(tenant.ID, "email", err)
	}

	return channels
}

// renderTemplate возвращает текст уведомления: настроенный в БД шаблон,
// если он есть, иначе текст по умолчанию.
func (r *Runner) renderTemplate(name, fallback string, vars map[string]string) string {
	var tpl models.NotificationTemplate
	if err := r.DB.Where("name = ?", name).First(&tpl).Error; err != nil {
		return fallback
	}
	return tpl.Render("en", vars)
}

// logNotification фиксирует попытку доставки в таблице уведомлений.
func (r *Runner) logNotification(tenantID uint, channel string, sendErr error) {
	entry := models.Notification{
		RecipientID: &tenantID,
		Type:        channel,
		Status:      "sent",
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.ErrorMsg = sendErr.Error()
	} else {
		now := r.now()
		entry.SentAt = &now
	}
	if err := r.DB.Create(&entry).Error; err != nil {
		slog.Error("Не удалось записать факт отправки уведомления",
			"tenant_id", tenantID, "channel", channel, "error", err)
	}
}

// recordReminder фиксирует отправку в ReminderLog. Дубликат (гонка двух
// запусков) не считается ошибкой благодаря уникальному индексу.
func (r *Runner) recordReminder(ctx context.Context, tenantID uint, period, kind string, channels []string) {
	entry := models.ReminderLog{
		TenantID:      tenantID,
		BillingPeriod: period,
		Kind:          kind,
		Channels:      strings.Join(channels, ","),
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return
		}
		slog.Error("Не удалось записать факт отправки напоминания",
			"tenant_id", tenantID, "kind", kind, "error", err)
	}
}

// lateFee вычисляет пеню по формуле объекта недвижимости.
// Формула задается арендодателем, доступны переменные rent и days_late.
// Некорректная формула логируется и трактуется как отсутствие пени.
func lateFee(tenant *models.Tenant, daysLate int) float64 {
	formula := tenant.Property.LateFeeFormula
	if formula == "" || daysLate <= 0 {
		return 0
	}

	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		slog.Warn("Некорректная формула пени", "property_id", tenant.PropertyID, "error", err)
		return 0
	}

	result, err := expr.Evaluate(map[string]interface{}{
		"rent":      tenant.RentAmount,
		"days_late": float64(daysLate),
	})
	if err != nil {
		slog.Warn("Ошибка вычисления формулы пени", "property_id", tenant.PropertyID, "error", err)
		return 0
	}

	fee, ok := result.(float64)
	if !ok || fee < 0 {
		return 0
	}
	return fee
}
