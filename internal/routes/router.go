// nyumbani-crm/internal/routes/router.go
package routes

import (
	"nyumbani-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine) {
	// --- Публичные маршруты ---
	// Вход, регистрация и callback платежного шлюза.
	RegisterAuthRoutes(r)

	// --- Защищенная группа маршрутов ---
	// Middleware `AuthMiddleware` проверяет наличие и валидность JWT токена.
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
