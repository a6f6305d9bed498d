// nyumbani-crm/internal/handlers/property_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"nyumbani-crm/config"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PropertyRequest определяет структуру для создания/обновления объекта.
type PropertyRequest struct {
	Name           string  `json:"name" binding:"required"`
	Address        string  `json:"address" binding:"required"`
	PropertyType   string  `json:"propertyType"`
	NumberOfUnits  int     `json:"numberOfUnits" binding:"min=1"`
	County         string  `json:"county"`
	DepositAmount  float64 `json:"depositAmount"`
	DepositPolicy  string  `json:"depositPolicy"`
	LateFeeFormula string  `json:"lateFeeFormula"`
}

// currentUserID достает ID пользователя, положенный в контекст middleware'ом.
func currentUserID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// ListPropertiesHandler возвращает объекты текущего арендодателя.
// Чужие объекты не видны никогда.
func ListPropertiesHandler(c *gin.Context) {
	var properties []models.Property
	if err := config.DB.Where("landlord_id = ?", currentUserID(c)).
		Order("created_at DESC").Find(&properties).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}
	c.JSON(http.StatusOK, properties)
}

// CreatePropertyHandler добавляет новый объект недвижимости.
func CreatePropertyHandler(c *gin.Context) {
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	property := models.Property{
		Name:           req.Name,
		Address:        req.Address,
		PropertyType:   req.PropertyType,
		NumberOfUnits:  req.NumberOfUnits,
		County:         req.County,
		DepositAmount:  req.DepositAmount,
		DepositPolicy:  req.DepositPolicy,
		LateFeeFormula: req.LateFeeFormula,
		LandlordID:     currentUserID(c),
	}

	if err := config.DB.Create(&property).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить объект"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

// GetPropertyHandler возвращает один объект арендодателя.
func GetPropertyHandler(c *gin.Context) {
	property, ok := findOwnedProperty(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, property)
}

// UpdatePropertyHandler обновляет объект арендодателя.
func UpdatePropertyHandler(c *gin.Context) {
	property, ok := findOwnedProperty(c)
	if !ok {
		return
	}

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	property.Name = req.Name
	property.Address = req.Address
	property.PropertyType = req.PropertyType
	property.NumberOfUnits = req.NumberOfUnits
	property.County = req.County
	property.DepositAmount = req.DepositAmount
	property.DepositPolicy = req.DepositPolicy
	property.LateFeeFormula = req.LateFeeFormula

	if err := config.DB.Save(property).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить объект"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// DeletePropertyHandler удаляет объект (soft delete через gorm.Model).
// Объект с активными арендаторами удалить нельзя.
func DeletePropertyHandler(c *gin.Context) {
	property, ok := findOwnedProperty(c)
	if !ok {
		return
	}

	var activeTenants int64
	config.DB.Model(&models.Tenant{}).
		Where("property_id = ? AND status = ?", property.ID, models.TenantStatusActive).
		Count(&activeTenants)
	if activeTenants > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "У объекта есть активные арендаторы"})
		return
	}

	if err := config.DB.Delete(property).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить объект"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Объект удален"})
}

// findOwnedProperty находит объект по :id и проверяет, что он принадлежит
// текущему арендодателю. При ошибке сам пишет ответ и возвращает ok=false.
func findOwnedProperty(c *gin.Context) (*models.Property, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return nil, false
	}

	var property models.Property
	if err := config.DB.First(&property, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Объект не найден"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при поиске объекта"})
		return nil, false
	}

	if property.LandlordID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	return &property, true
}
