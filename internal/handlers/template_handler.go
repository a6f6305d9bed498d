// FILE: nyumbani-crm/internal/handlers/template_handler.go
package handlers

import (
	"net/http"

	"nyumbani-crm/config"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
)

// NotificationTemplateRequest определяет структуру для создания и
// обновления шаблона уведомления.
type NotificationTemplateRequest struct {
	Name      string       `json:"name" binding:"required"`
	Type      string       `json:"type" binding:"required,oneof=sms email"`
	SubjectEn string       `json:"subjectEn"`
	SubjectSw string       `json:"subjectSw"`
	BodyEn    string       `json:"bodyEn" binding:"required"`
	BodySw    string       `json:"bodySw"`
	Variables models.JSONB `json:"variables"`
}

// ListNotificationTemplatesHandler возвращает список шаблонов уведомлений.
func ListNotificationTemplatesHandler(c *gin.Context) {
	var templates []models.NotificationTemplate
	if err := config.DB.Order("name asc").Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch templates"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetNotificationTemplateHandler для получения одного шаблона.
func GetNotificationTemplateHandler(c *gin.Context) {
	var template models.NotificationTemplate
	if err := config.DB.First(&template, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}
	c.JSON(http.StatusOK, template)
}

// CreateNotificationTemplateHandler создает новый шаблон уведомления.
// Тексты на двух языках; в теле допустимы переменные вида {{tenant_name}}.
func CreateNotificationTemplateHandler(c *gin.Context) {
	var req NotificationTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	template := models.NotificationTemplate{
		Name:      req.Name,
		Type:      req.Type,
		SubjectEn: req.SubjectEn,
		SubjectSw: req.SubjectSw,
		BodyEn:    req.BodyEn,
		BodySw:    req.BodySw,
		Variables: req.Variables,
	}
	if err := config.DB.Create(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template in DB"})
		return
	}
	c.JSON(http.StatusCreated, template)
}

// UpdateNotificationTemplateHandler обновляет существующий шаблон.
func UpdateNotificationTemplateHandler(c *gin.Context) {
	var template models.NotificationTemplate
	if err := config.DB.First(&template, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	var req NotificationTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	template.Name = req.Name
	template.Type = req.Type
	template.SubjectEn = req.SubjectEn
	template.SubjectSw = req.SubjectSw
	template.BodyEn = req.BodyEn
	template.BodySw = req.BodySw
	template.Variables = req.Variables

	if err := config.DB.Save(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}
	c.JSON(http.StatusOK, template)
}

// DeleteNotificationTemplateHandler удаляет шаблон. Задачи, которые на
// него ссылались, возвращаются к текстам по умолчанию.
func DeleteNotificationTemplateHandler(c *gin.Context) {
	var template models.NotificationTemplate
	if err := config.DB.First(&template, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	if err := config.DB.Delete(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template from DB"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Шаблон успешно удален"})
}
