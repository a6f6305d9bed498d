// FILE: nyumbani-crm/internal/handlers/export_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// PaymentExportRow - строка выгрузки платежей.
type PaymentExportRow struct {
	ReceiptNumber string    `json:"receipt_number"`
	TenantName    string    `json:"tenant_name"`
	PropertyName  string    `json:"property_name"`
	UnitNumber    string    `json:"unit_number"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	BillingPeriod string    `json:"billing_period"`
	Status        string    `json:"status"`
}

// ExportPaymentsHandler - обработчик для экспорта платежей в Excel.
func ExportPaymentsHandler(c *gin.Context) {
	var rows []PaymentExportRow

	query := paymentsScopedToLandlord(c).
		Select(`payments.receipt_number,
			tenants.first_name || ' ' || tenants.last_name AS tenant_name,
			properties.name AS property_name,
			tenants.unit_number,
			payments.amount,
			payments.payment_date,
			payments.payment_method,
			payments.billing_period,
			payments.status`)

	if status := c.Query("status"); status != "" {
		query = query.Where("payments.status = ?", status)
	}
	if period := c.Query("period"); period != "" {
		query = query.Where("payments.billing_period = ?", period)
	}

	if err := query.Order("payments.payment_date DESC").Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Payments"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Receipt No", "Tenant", "Property", "Unit", "Amount (KES)", "Payment Date", "Method", "Period", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, p := range rows {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), p.ReceiptNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), p.TenantName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), p.PropertyName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), p.UnitNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), p.Amount)
		if !p.PaymentDate.IsZero() {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), p.PaymentDate.Format("02.01.2006"))
		}
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), p.PaymentMethod)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), p.BillingPeriod)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), p.Status)
	}

	fileName := fmt.Sprintf("payments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}
