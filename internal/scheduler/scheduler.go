// nyumbani-crm/internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"nyumbani-crm/internal/mpesa"
	"nyumbani-crm/internal/tasks"

	"github.com/robfig/cron/v3"
)

// Scheduler - явно конструируемый планировщик фоновых задач.
// Никакого глобального состояния: экземпляр создается в main,
// запускается после инициализации приложения и останавливается
// при завершении. Каждая задача обернута в SkipIfStillRunning -
// максимум один одновременный запуск, отставшие срабатывания
// схлопываются в одно.
type Scheduler struct {
	cron   *cron.Cron
	runner *tasks.Runner
	mpesa  *mpesa.Client
}

// Расписание задач.
const (
	specTokenRefresh      = "@every 50m"   // токен Daraja живет ~1 час
	specInvoiceGeneration = "0 21 28 * *"  // 28-е число, 21:00 - счета на следующий месяц
	specUpcomingReminders = "0 6 * * *"    // ежедневно утром
	specOverdueReminders  = "0 9 * * *"    // ежедневно, позже утренней задачи
	specOfflineSync       = "@every 30m"
)

// New собирает планировщик с пятью задачами рентного цикла.
func New(runner *tasks.Runner, mpesaClient *mpesa.Client) *Scheduler {
	logger := &cronLogger{}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
	)

	s := &Scheduler{cron: c, runner: runner, mpesa: mpesaClient}

	s.mustAdd("mpesa_token_refresh", specTokenRefresh, func(ctx context.Context) error {
		return mpesaClient.RefreshToken(ctx)
	})
	s.mustAdd("rent_invoices", specInvoiceGeneration, runner.GenerateInvoices)
	s.mustAdd("upcoming_reminders", specUpcomingReminders, runner.SendUpcomingReminders)
	s.mustAdd("overdue_reminders", specOverdueReminders, runner.SendOverdueReminders)
	s.mustAdd("sync_offline_payments", specOfflineSync, runner.SyncOfflinePayments)

	return s
}

// Start запускает планировщик и сразу инициирует обновление токена,
// чтобы не ждать первого срабатывания по расписанию.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		if err := s.mpesa.RefreshToken(ctx); err != nil {
			slog.Error("Первичное обновление токена M-Pesa не удалось", "error", err)
		}
	}()
	s.cron.Start()
	slog.Info("Планировщик фоновых задач запущен")
}

// Stop останавливает планировщик и дожидается завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Планировщик фоновых задач остановлен")
}

// mustAdd регистрирует задачу; ошибка в cron-выражении - ошибка программиста.
func (s *Scheduler) mustAdd(name, spec string, job func(context.Context) error) {
	_, err := s.cron.AddFunc(spec, func() {
		// Отмены нет: задача либо завершается, либо падает и будет
		// повторена следующим срабатыванием расписания.
		if err := job(context.Background()); err != nil {
			slog.Error("Фоновая задача завершилась с ошибкой", "job", name, "error", err)
		}
	})
	if err != nil {
		panic("scheduler: некорректное cron-выражение для " + name + ": " + err.Error())
	}
}

// cronLogger адаптирует slog под интерфейс cron.Logger.
type cronLogger struct{}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Info("cron: "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	slog.Error("cron: "+msg, args...)
}
