// FILE: nyumbani-crm/internal/handlers/webhook_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"nyumbani-crm/config"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
)

// STKCallbackItem - элемент CallbackMetadata из callback Daraja.
type STKCallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// STKCallbackBody определяет структуру callback от Daraja после STK push.
type STKCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []STKCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// mpesaAck - фиксированный конверт ответа, который ожидает Daraja.
// Любой другой ответ заставит шлюз повторять доставку.
func mpesaAck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// MpesaCallbackHandler обрабатывает callback от Daraja после STK push.
//
// Всегда отвечает 200 с фиксированным конвертом, даже при внутренних
// ошибках: шлюз повторяет доставку при любом другом ответе, а повторный
// callback по уже обработанной транзакции безопасен (идемпотентность
// по checkout_request_id).
func MpesaCallbackHandler(c *gin.Context) {
	var input STKCallbackBody
	if err := c.ShouldBindJSON(&input); err != nil {
		slog.Warn("Получен нечитаемый M-Pesa callback", "error", err)
		mpesaAck(c)
		return
	}

	cb := input.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		slog.Warn("M-Pesa callback без CheckoutRequestID")
		mpesaAck(c)
		return
	}

	var mpesaTx models.MpesaTransaction
	if err := config.DB.Where("checkout_request_id = ?", cb.CheckoutRequestID).First(&mpesaTx).Error; err != nil {
		slog.Warn("M-Pesa callback по неизвестной транзакции", "checkout_request_id", cb.CheckoutRequestID)
		mpesaAck(c)
		return
	}

	// Повторная доставка уже обработанного callback.
	if mpesaTx.Status != models.MpesaTxInitiated {
		mpesaAck(c)
		return
	}

	rawCallback := models.JSONB{
		"MerchantRequestID": cb.MerchantRequestID,
		"CheckoutRequestID": cb.CheckoutRequestID,
		"ResultCode":        cb.ResultCode,
		"ResultDesc":        cb.ResultDesc,
	}

	var receiptNumber string
	var amount float64
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				receiptNumber = s
			}
		case "Amount":
			if f, ok := item.Value.(float64); ok {
				amount = f
			}
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		slog.Error("Не удалось начать транзакцию для M-Pesa callback", "error", tx.Error)
		mpesaAck(c)
		return
	}

	now := time.Now().UTC()
	if cb.ResultCode == 0 {
		mpesaTx.Status = models.MpesaTxCompleted
		mpesaTx.MpesaReceiptNumber = receiptNumber
		mpesaTx.CompletedAt = &now
	} else {
		mpesaTx.Status = models.MpesaTxFailed
	}
	mpesaTx.MerchantRequestID = cb.MerchantRequestID
	mpesaTx.ResultCode = cb.ResultCode
	mpesaTx.ResultDesc = cb.ResultDesc
	mpesaTx.RawCallback = rawCallback

	if err := tx.Save(&mpesaTx).Error; err != nil {
		tx.Rollback()
		slog.Error("Не удалось сохранить M-Pesa транзакцию", "error", err)
		mpesaAck(c)
		return
	}

	if mpesaTx.PaymentID != nil {
		var payment models.Payment
		if err := tx.First(&payment, *mpesaTx.PaymentID).Error; err == nil {
			updates := map[string]interface{}{}
			if cb.ResultCode == 0 {
				updates["status"] = models.PaymentStatusConfirmed
				updates["receipt_number"] = receiptNumber
				updates["payment_date"] = now
				if amount > 0 {
					updates["amount"] = amount
				}
			} else {
				updates["status"] = models.PaymentStatusFailed
			}
			if err := tx.Model(&payment).Updates(updates).Error; err != nil {
				tx.Rollback()
				slog.Error("Не удалось обновить платеж по callback", "payment_id", payment.ID, "error", err)
				mpesaAck(c)
				return
			}

			audit := models.AuditLog{
				Action:    "MPESA_CALLBACK",
				TableName: "payments",
				RecordID:  payment.ID,
				NewValue:  rawCallback,
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			}
			if err := tx.Create(&audit).Error; err != nil {
				tx.Rollback()
				slog.Error("Не удалось записать аудит callback", "error", err)
				mpesaAck(c)
				return
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		slog.Error("Не удалось подтвердить транзакцию callback", "error", err)
	}

	slog.Info("M-Pesa callback обработан",
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"status", mpesaTx.Status)
	mpesaAck(c)
}
