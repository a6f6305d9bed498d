// nyumbani-crm/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nyumbani-crm/config"
	"nyumbani-crm/internal/handlers"
	"nyumbani-crm/internal/mpesa"
	"nyumbani-crm/internal/notify"
	"nyumbani-crm/internal/routes"
	"nyumbani-crm/internal/scheduler"
	"nyumbani-crm/internal/tasks"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Property{},
		&models.Tenant{},
		&models.Payment{},
		&models.MpesaTransaction{},
		&models.ReminderLog{},
		&models.NotificationTemplate{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		slog.Error("Ошибка миграции базы данных", "error", err)
		os.Exit(1)
	}

	seedRoles()

	mpesaSettings := config.Mpesa()
	notifier := notify.NewService(config.Mail(), config.Twilio())
	gateway := mpesa.NewClient(mpesaSettings, config.RDB)
	runner := tasks.NewRunner(config.DB, notifier, gateway, mpesaSettings.Paybill)
	handlers.InitPaymentGateway(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(runner, gateway)
	sched.Start(ctx)

	r := gin.Default()
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		slog.Info("Сервер запущен", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Ошибка запуска сервера", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Завершение работы...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ошибка при остановке сервера", "error", err)
	}
}

// seedRoles создает базовые роли, если их еще нет.
func seedRoles() {
	for _, role := range []models.Role{
		{Name: "admin", Description: "Полный доступ к системе"},
		{Name: "landlord", Description: "Арендодатель: объекты, арендаторы, платежи"},
		{Name: "tenant", Description: "Арендатор: просмотр своих платежей"},
	} {
		if err := config.DB.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
			slog.Warn("Не удалось создать роль", "role", role.Name, "error", err)
		}
	}
}
