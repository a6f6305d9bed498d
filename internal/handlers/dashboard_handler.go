// FILE: nyumbani-crm/internal/handlers/dashboard_handler.go
package handlers

import (
	"net/http"
	"time"

	"nyumbani-crm/config"
	"nyumbani-crm/internal/tasks"
	"nyumbani-crm/models"

	"github.com/gin-gonic/gin"
)

// GetDashboardHandler собирает сводку по портфелю текущего арендодателя:
// просроченные платежи, сборы за текущий месяц, заполняемость и
// последние поступления.
func GetDashboardHandler(c *gin.Context) {
	landlordID := currentUserID(c)
	now := time.Now().UTC()
	currentPeriod := tasks.BillingPeriod(now)

	var overdueCount int64
	if err := config.DB.Model(&models.Payment{}).
		Joins("JOIN tenants ON tenants.id = payments.tenant_id").
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", landlordID).
		Where("payments.status IN ?", []string{models.PaymentStatusPendingDue, models.PaymentStatusPartiallyPaid}).
		Where("payments.payment_date < ?", now).
		Count(&overdueCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count overdue payments"})
		return
	}

	var monthCollections float64
	if err := config.DB.Model(&models.Payment{}).
		Joins("JOIN tenants ON tenants.id = payments.tenant_id").
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", landlordID).
		Where("payments.billing_period = ?", currentPeriod).
		Where("payments.status IN ?", []string{models.PaymentStatusConfirmed, models.PaymentStatusPartiallyPaid}).
		Select("coalesce(sum(payments.amount), 0)").
		Row().Scan(&monthCollections); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sum collections"})
		return
	}

	var totalUnits int64
	if err := config.DB.Model(&models.Property{}).
		Where("landlord_id = ?", landlordID).
		Select("coalesce(sum(number_of_units), 0)").
		Row().Scan(&totalUnits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count units"})
		return
	}

	var occupiedUnits int64
	if err := config.DB.Model(&models.Tenant{}).
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", landlordID).
		Where("tenants.status = ?", models.TenantStatusActive).
		Count(&occupiedUnits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tenants"})
		return
	}

	vacancyRate := 0.0
	if totalUnits > 0 {
		vacancyRate = float64(totalUnits-occupiedUnits) / float64(totalUnits) * 100
	}

	var recentPayments []models.Payment
	if err := config.DB.Model(&models.Payment{}).
		Joins("JOIN tenants ON tenants.id = payments.tenant_id").
		Joins("JOIN properties ON properties.id = tenants.property_id").
		Where("properties.landlord_id = ?", landlordID).
		Where("payments.status = ?", models.PaymentStatusConfirmed).
		Preload("Tenant").
		Order("payments.payment_date DESC").
		Limit(10).
		Find(&recentPayments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overdueCount":     overdueCount,
		"monthCollections": monthCollections,
		"currentPeriod":    currentPeriod,
		"totalUnits":       totalUnits,
		"occupiedUnits":    occupiedUnits,
		"vacancyRate":      vacancyRate,
		"recentPayments":   recentPayments,
	})
}
