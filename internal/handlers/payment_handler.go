// FILE: nyumbani-crm/internal/handlers/payment_handler.go
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nyumbani-crm/config"
	"nyumbani-crm/internal/mpesa"
	"nyumbani-crm/internal/tasks"
	"nyumbani-crm/models"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// mpesaClient - клиент платежного шлюза, внедряется из main при старте.
var mpesaClient *mpesa.Client

// InitPaymentGateway внедряет клиента Daraja в обработчики платежей.
func InitPaymentGateway(client *mpesa.Client) {
	mpesaClient = client
}

// RecordPaymentRequest определяет структуру для ручного ввода платежа.
type RecordPaymentRequest struct {
	TenantID      uint    `json:"tenantId" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
	PaymentType   string  `json:"paymentType"`
	PaymentDate   string  `json:"paymentDate"` // YYYY-MM-DD, по умолчанию сегодня
	TransactionID string  `json:"transactionId"`
	Description   string  `json:"description"`
	IsOffline     bool    `json:"isOffline"`
}

// RecordPaymentHandler записывает платеж, принятый вручную.
//
// Если за расчетный месяц уже есть запись аренды (выставленный счет),
// она подтверждается, а не дублируется - уникальный индекс
// (tenant_id, billing_period, payment_type) второй записи и не допустит.
// Офлайн-платежи попадают в очередь синхронизации (pending_sync).
func RecordPaymentHandler(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	tenant, ok := findOwnedTenantByID(c, req.TenantID)
	if !ok {
		return
	}

	paymentDate := time.Now().UTC()
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
			return
		}
		paymentDate = parsed
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = models.PaymentTypeRent
	}

	period := tasks.BillingPeriod(paymentDate)
	syncStatus := models.SyncStatusSynced
	offlineRef := ""
	if req.IsOffline {
		syncStatus = models.SyncStatusPendingSync
		offlineRef = uuid.NewString()
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось начать транзакцию"})
		return
	}

	var payment models.Payment
	err := tx.Where("tenant_id = ? AND billing_period = ? AND payment_type = ?",
		tenant.ID, period, paymentType).First(&payment).Error

	switch {
	case err == nil:
		// Подтверждаем уже выставленный счет за этот месяц.
		payment.Amount = req.Amount
		payment.PaymentMethod = req.PaymentMethod
		payment.PaymentDate = paymentDate
		payment.Status = models.PaymentStatusConfirmed
		payment.TransactionID = req.TransactionID
		payment.Description = req.Description
		payment.ReceiptNumber = uuid.NewString()
		payment.IsOffline = req.IsOffline
		payment.SyncStatus = syncStatus
		payment.OfflineReference = offlineRef
		if paymentType == models.PaymentTypeRent && payment.Amount < tenant.RentAmount {
			payment.Status = models.PaymentStatusPartiallyPaid
		}
		if err := tx.Save(&payment).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить платеж"})
			return
		}
	case err == gorm.ErrRecordNotFound:
		payment = models.Payment{
			TenantID:         tenant.ID,
			Amount:           req.Amount,
			PaymentType:      paymentType,
			PaymentMethod:    req.PaymentMethod,
			PaymentDate:      paymentDate,
			BillingPeriod:    period,
			Status:           models.PaymentStatusConfirmed,
			TransactionID:    req.TransactionID,
			Description:      req.Description,
			ReceiptNumber:    uuid.NewString(),
			IsOffline:        req.IsOffline,
			SyncStatus:       syncStatus,
			OfflineReference: offlineRef,
		}
		if paymentType == models.PaymentTypeRent && payment.Amount < tenant.RentAmount {
			payment.Status = models.PaymentStatusPartiallyPaid
		}
		if err := tx.Create(&payment).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить платеж"})
			return
		}
	default:
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при поиске платежа"})
		return
	}

	userID := currentUserID(c)
	audit := models.AuditLog{
		UserID:    &userID,
		Action:    "PAYMENT_RECORDED",
		TableName: "payments",
		RecordID:  payment.ID,
		NewValue: models.JSONB{
			"amount": payment.Amount,
			"status": payment.Status,
			"method": payment.PaymentMethod,
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if err := tx.Create(&audit).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось записать аудит"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подтвердить транзакцию"})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ListPaymentsHandler возвращает историю платежей по арендаторам текущего
// арендодателя, с фильтрами и пагинацией.
func ListPaymentsHandler(c *gin.Context) {
	var payments []models.Payment
	var totalRows int64

	query := paymentsScopedToLandlord(c)

	if status := c.Query("status"); status != "" {
		query = query.Where("payments.status = ?", status)
	}
	if tenantID := c.Query("tenant_id"); tenantID != "" {
		query = query.Where("payments.tenant_id = ?", tenantID)
	}
	if period := c.Query("period"); period != "" {
		query = query.Where("payments.billing_period = ?", period)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count payments"})
		return
	}

	if err := query.Scopes(Paginate(c)).Preload("Tenant").
		Order("payments.payment_date DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, payments, totalRows))
}

// GetReceiptHandler возвращает данные квитанции по платежу,
// включая сумму прописью.
func GetReceiptHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	var payment models.Payment
	if err := paymentsScopedToLandlord(c).Preload("Tenant").Preload("Tenant.Property").
		Where("payments.id = ?", id).First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	}

	if payment.Status != models.PaymentStatusConfirmed && payment.Status != models.PaymentStatusPartiallyPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Квитанция доступна только для подтвержденных платежей"})
		return
	}

	shillings := int(payment.Amount)
	cents := int(payment.Amount*100+0.5) % 100
	amountWords := num2words.Convert(shillings) + " shillings"
	if cents > 0 {
		amountWords += " and " + num2words.Convert(cents) + " cents"
	}

	c.JSON(http.StatusOK, gin.H{
		"receiptNumber": payment.ReceiptNumber,
		"tenantName":    payment.Tenant.FullName(),
		"propertyName":  payment.Tenant.Property.Name,
		"amount":        payment.Amount,
		"amountInWords": amountWords,
		"paymentDate":   payment.PaymentDate.Format("2006-01-02"),
		"paymentMethod": payment.PaymentMethod,
		"billingPeriod": payment.BillingPeriod,
		"status":        payment.Status,
	})
}

// STKPushRequest определяет структуру для инициации STK push.
type STKPushRequest struct {
	TenantID uint    `json:"tenantId" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Phone    string  `json:"phone"` // по умолчанию телефон арендатора
}

// InitiateSTKPushHandler отправляет STK push на телефон арендатора и
// переводит платеж в статус pending_confirmation. Подтверждение придет
// асинхронно через callback шлюза (MpesaCallbackHandler).
func InitiateSTKPushHandler(c *gin.Context) {
	if mpesaClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Платежный шлюз не настроен"})
		return
	}

	var req STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные: " + err.Error()})
		return
	}

	tenant, ok := findOwnedTenantByID(c, req.TenantID)
	if !ok {
		return
	}

	phone := req.Phone
	if phone == "" {
		phone = tenant.PhoneNumber
	}

	now := time.Now().UTC()
	period := tasks.BillingPeriod(now)
	accountRef := fmt.Sprintf("%s-%d", tenant.Property.Name, tenant.ID)

	checkoutID, err := mpesaClient.InitiateSTKPush(c.Request.Context(), phone, req.Amount, accountRef, "Rent Payment")
	if err != nil {
		slog.Error("STK push не удался", "tenant_id", tenant.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Не удалось инициировать STK push"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось начать транзакцию"})
		return
	}

	var payment models.Payment
	err = tx.Where("tenant_id = ? AND billing_period = ? AND payment_type = ?",
		tenant.ID, period, models.PaymentTypeRent).First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		payment = models.Payment{
			TenantID:      tenant.ID,
			Amount:        req.Amount,
			PaymentType:   models.PaymentTypeRent,
			PaymentMethod: models.PaymentMethodMpesa,
			PaymentDate:   now,
			BillingPeriod: period,
			Status:        models.PaymentStatusPendingConfirmation,
			TransactionID: checkoutID,
			SyncStatus:    models.SyncStatusSynced,
		}
		if err := tx.Create(&payment).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать платеж"})
			return
		}
	} else if err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при поиске платежа"})
		return
	} else {
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":         models.PaymentStatusPendingConfirmation,
			"payment_method": models.PaymentMethodMpesa,
			"transaction_id": checkoutID,
		}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить платеж"})
			return
		}
	}

	mpesaTx := models.MpesaTransaction{
		PaymentID:         &payment.ID,
		CheckoutRequestID: checkoutID,
		Amount:            req.Amount,
		PhoneNumber:       mpesa.FormatPhoneNumber(phone),
		Status:            models.MpesaTxInitiated,
		RawRequest: models.JSONB{
			"accountReference": accountRef,
			"amount":           req.Amount,
		},
	}
	if err := tx.Create(&mpesaTx).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить M-Pesa транзакцию"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подтвердить транзакцию"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "STK push отправлен", "checkoutRequestId": checkoutID})
}

// paymentsScopedToLandlord ограничивает выборку платежей арендаторами
// текущего арендодателя (через владение объектом).
func paymentsScopedToLandlord(c *gin.Context) *gorm.DB {
	return config.DB.Model(&models.Payment{}).
		Joins("JOIN tenants ON tenants.id = payments.tenant_id").
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", currentUserID(c))
}

// findOwnedTenantByID - как findOwnedTenant, но по явному ID из тела запроса.
func findOwnedTenantByID(c *gin.Context, tenantID uint) (*models.Tenant, bool) {
	var tenant models.Tenant
	if err := config.DB.Preload("Property").First(&tenant, tenantID).Error; err != nil {
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
