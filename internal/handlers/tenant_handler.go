// nyumbani-crm/internal/handlers/tenant_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nyumbani-crm/config"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TenantRequest определяет структуру для создания/обновления арендатора.
type TenantRequest struct {
	FirstName       string  `json:"firstName" binding:"required"`
	LastName        string  `json:"lastName" binding:"required"`
	Email           string  `json:"email"`
	PhoneNumber     string  `json:"phoneNumber" binding:"required"`
	NationalID      string  `json:"nationalId"`
	UnitNumber      string  `json:"unitNumber"`
	PropertyID      uint    `json:"propertyId" binding:"required"`
	RentAmount      float64 `json:"rentAmount" binding:"required,gt=0"`
	DueDayOfMonth   int     `json:"dueDayOfMonth" binding:"min=1,max=31"`
	GracePeriodDays int     `json:"gracePeriodDays" binding:"min=0"`
	LeaseStartDate  string  `json:"leaseStartDate" binding:"required"` // YYYY-MM-DD
	LeaseEndDate    string  `json:"leaseEndDate"`
}

// ListTenantsHandler возвращает арендаторов по всем объектам текущего
// арендодателя, с пагинацией.
func ListTenantsHandler(c *gin.Context) {
	var tenants []models.Tenant
	var totalRows int64

	query := config.DB.Model(&models.Tenant{}).
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", currentUserID(c))

	if status := c.Query("status"); status != "" {
		query = query.Where("tenants.status = ?", status)
	}
	if propertyID := c.Query("property_id"); propertyID != "" {
		query = query.Where("tenants.property_id = ?", propertyID)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tenants"})
		return
	}

	if err := query.Scopes(Paginate(c)).Preload("Property").
		Order("tenants.created_at DESC").Find(&tenants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tenants"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, tenants, totalRows))
}

// CreateTenantHandler добавляет арендатора к объекту. Превышение числа
// юнитов объекта не блокирует создание, но возвращается предупреждением
// и попадает в лог.
func CreateTenantHandler(c *gin.Context) {
	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	var property models.Property
	if err := config.DB.First(&property, req.PropertyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Объект не найден"})
		return
	}
	if property.LandlordID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	leaseStart, err := time.Parse("2006-01-02", req.LeaseStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты начала аренды. Используйте YYYY-MM-DD."})
		return
	}

	var leaseEnd *time.Time
	if req.LeaseEndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.LeaseEndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты окончания аренды. Используйте YYYY-MM-DD."})
			return
		}
		if parsed.Before(leaseStart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Дата окончания аренды раньше даты начала"})
			return
		}
		leaseEnd = &parsed
	}

	tenant := models.Tenant{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		NationalID:      req.NationalID,
		UnitNumber:      req.UnitNumber,
		Status:          models.TenantStatusActive,
		PropertyID:      req.PropertyID,
		RentAmount:      req.RentAmount,
		DueDayOfMonth:   req.DueDayOfMonth,
		GracePeriodDays: req.GracePeriodDays,
		LeaseStartDate:  leaseStart,
		LeaseEndDate:    leaseEnd,
	}

	if err := config.DB.Create(&tenant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить арендатора"})
		return
	}

	response := gin.H{"tenant": tenant}

	// Переполнение объекта - предупреждение, а не ошибка.
	var occupied int64
	config.DB.Model(&models.Tenant{}).
		Where("property_id = ? AND status = ?", property.ID, models.TenantStatusActive).
		Count(&occupied)
	if occupied > int64(property.NumberOfUnits) {
		slog.Warn("Число активных арендаторов превышает число юнитов объекта",
			"property_id", property.ID, "occupied", occupied, "units", property.NumberOfUnits)
		response["warning"] = "Число активных арендаторов превышает число юнитов объекта"
	}

	c.JSON(http.StatusCreated, response)
}

// GetTenantHandler возвращает одного арендатора.
func GetTenantHandler(c *gin.Context) {
	tenant, ok := findOwnedTenant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// UpdateTenantHandler обновляет условия аренды.
func UpdateTenantHandler(c *gin.Context) {
	tenant, ok := findOwnedTenant(c)
	if !ok {
		return
	}

	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	leaseStart, err := time.Parse("2006-01-02", req.LeaseStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты начала аренды"})
		return
	}

	tenant.FirstName = req.FirstName
	tenant.LastName = req.LastName
	tenant.Email = req.Email
	tenant.PhoneNumber = req.PhoneNumber
	tenant.NationalID = req.NationalID
	tenant.UnitNumber = req.UnitNumber
	tenant.RentAmount = req.RentAmount
	tenant.DueDayOfMonth = req.DueDayOfMonth
	tenant.GracePeriodDays = req.GracePeriodDays
	tenant.LeaseStartDate = leaseStart

	if req.LeaseEndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.LeaseEndDate)
		if err != nil || parsed.Before(leaseStart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректная дата окончания аренды"})
			return
		}
		tenant.LeaseEndDate = &parsed
	} else {
		tenant.LeaseEndDate = nil
	}

	if err := config.DB.Save(tenant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить арендатора"})
		return
	}

	c.JSON(http.StatusOK, tenant)
}

// VacateTenantHandler переводит арендатора в терминальный статус vacated:
// счета больше не выставляются, напоминания не отправляются.
func VacateTenantHandler(c *gin.Context) {
	changeTenantStatus(c, models.TenantStatusVacated)
}

// EvictTenantHandler переводит арендатора в терминальный статус evicted.
func EvictTenantHandler(c *gin.Context) {
	changeTenantStatus(c, models.TenantStatusEvicted)
}

func changeTenantStatus(c *gin.Context, newStatus string) {
	tenant, ok := findOwnedTenant(c)
	if !ok {
		return
	}

	// Статусы vacated/evicted терминальные.
	if !tenant.IsActive() {
		c.JSON(http.StatusConflict, gin.H{"error": "Арендатор уже в терминальном статусе: " + tenant.Status})
		return
	}

	oldStatus := tenant.Status
	tenant.Status = newStatus
	if err := config.DB.Save(tenant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить статус"})
		return
	}

	userID := currentUserID(c)
	audit := models.AuditLog{
		UserID:    &userID,
		Action:    "TENANT_STATUS_CHANGE",
		TableName: "tenants",
		RecordID:  tenant.ID,
		OldValue:  models.JSONB{"status": oldStatus},
		NewValue:  models.JSONB{"status": newStatus},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if err := config.DB.Create(&audit).Error; err != nil {
		slog.Error("Не удалось записать аудит смены статуса", "tenant_id", tenant.ID, "error", err)
	}

	c.JSON(http.StatusOK, tenant)
}

// findOwnedTenant находит арендатора по :id и проверяет владение через объект.
func findOwnedTenant(c *gin.Context) (*models.Tenant, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant ID"})
		return nil, false
	}

	var tenant models.Tenant
	if err := config.DB.Preload("Property").First(&tenant, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Арендатор не найден"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при поиске арендатора"})
		return nil, false
	}

	if tenant.Property.LandlordID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	return &tenant, true
}
