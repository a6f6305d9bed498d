// nyumbani-crm/internal/routes/auth_routes.go
package routes

import (
	"nyumbani-crm/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes регистрирует публичные маршруты для аутентификации.
// Эти маршруты не требуют middleware для проверки токена.
func RegisterAuthRoutes(r *gin.Engine) {
	// Маршрут для обработки данных с формы входа.
	r.POST("/login", handlers.LoginHandler)

	// Маршрут для выхода пользователя из системы.
	r.GET("/logout", handlers.LogoutHandler)

	// Маршрут для регистрации нового пользователя.
	r.POST("/register", handlers.RegisterHandler)

	// Callback платежного шлюза. Аутентификации нет: Daraja
	// подписывает доставку только URL'ом, проверка идет по
	// checkout_request_id внутри обработчика.
	r.POST("/webhooks/mpesa/callback", handlers.MpesaCallbackHandler)
}
