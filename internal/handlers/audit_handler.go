// FILE: nyumbani-crm/internal/handlers/audit_handler.go
package handlers

import (
	"net/http"

	"nyumbani-crm/config"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
)

// ListAuditLogsHandler возвращает журнал аудита с фильтрами и пагинацией.
// Записи журнала только добавляются, редактирование не предусмотрено.
func ListAuditLogsHandler(c *gin.Context) {
	var logs []models.AuditLog
	var totalRows int64

	query := config.DB.Model(&models.AuditLog{})

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if table := c.Query("table"); table != "" {
		query = query.Where("table_name = ?", table)
	}
	if recordID := c.Query("record_id"); recordID != "" {
		query = query.Where("record_id = ?", recordID)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count audit logs"})
		return
	}

	if err := query.Scopes(Paginate(c)).Order("timestamp DESC").Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, logs, totalRows))
}
