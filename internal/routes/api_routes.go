// nyumbani-crm/internal/routes/api_routes.go
package routes

import (
	"nyumbani-crm/internal/handlers"
	"nyumbani-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	// Группа для всех API-запросов с префиксом /api
	apiGroup := api.Group("/api")
	{
		// --- ОБЪЕКТЫ НЕДВИЖИМОСТИ ---
		// Управление объектами доступно только арендодателям.
		properties := apiGroup.Group("/properties", middleware.RequireRole("landlord"))
		{
			properties.GET("", handlers.ListPropertiesHandler)
			properties.POST("", handlers.CreatePropertyHandler)
			properties.GET("/:id", handlers.GetPropertyHandler)
			properties.PUT("/:id", handlers.UpdatePropertyHandler)
			properties.DELETE("/:id", handlers.DeletePropertyHandler)
		}

		// --- АРЕНДАТОРЫ ---
		tenants := apiGroup.Group("/tenants", middleware.RequireRole("landlord"))
		{
			tenants.GET("", handlers.ListTenantsHandler)
			tenants.POST("", handlers.CreateTenantHandler)
			tenants.GET("/:id", handlers.GetTenantHandler)
			tenants.PUT("/:id", handlers.UpdateTenantHandler)
			tenants.POST("/:id/vacate", handlers.VacateTenantHandler)
			tenants.POST("/:id/evict", handlers.EvictTenantHandler)
		}

		// --- ПЛАТЕЖИ ---
		payments := apiGroup.Group("/payments", middleware.RequireRole("landlord"))
		{
			payments.GET("", handlers.ListPaymentsHandler)
			payments.POST("", handlers.RecordPaymentHandler)
			payments.GET("/:id/receipt", handlers.GetReceiptHandler)
			payments.POST("/stk-push", handlers.InitiateSTKPushHandler)
			payments.GET("/export", handlers.ExportPaymentsHandler)
		}

		// Профиль пользователя
		profile := apiGroup.Group("/profile")
		{
			profile.GET("", handlers.GetProfileHandler)
			profile.PUT("", handlers.UpdateProfileHandler)
			profile.POST("/password", handlers.ChangePasswordHandler)
		}

		// --- ШАБЛОНЫ УВЕДОМЛЕНИЙ ---
		templates := apiGroup.Group("/notification-templates", middleware.RequireRole("landlord"))
		{
			templates.GET("", handlers.ListNotificationTemplatesHandler)
			templates.POST("", handlers.CreateNotificationTemplateHandler)
			templates.GET("/:id", handlers.GetNotificationTemplateHandler)
			templates.PUT("/:id", handlers.UpdateNotificationTemplateHandler)
			templates.DELETE("/:id", handlers.DeleteNotificationTemplateHandler)
		}

		// --- ПАНЕЛЬ УПРАВЛЕНИЯ ---
		apiGroup.GET("/dashboard", middleware.RequireRole("landlord"), handlers.GetDashboardHandler)

		// --- АУДИТ ---
		// Журнал аудита доступен только администраторам.
		apiGroup.GET("/audit-logs", middleware.RequireRole("admin"), handlers.ListAuditLogsHandler)
	}
}
