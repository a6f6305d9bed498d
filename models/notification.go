// nyumbani-crm/models/notification.go
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// NotificationTemplate - шаблон SMS или email уведомления.
// Тексты хранятся на английском и суахили.
type NotificationTemplate struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	Type      string `json:"type" gorm:"not null"` // 'sms' или 'email'
	SubjectEn string `json:"subjectEn"`
	SubjectSw string `json:"subjectSw"`
	BodyEn    string `json:"bodyEn" gorm:"not null"`
	BodySw    string `json:"bodySw" gorm:"not null"`
	Variables JSONB  `json:"variables" gorm:"type:jsonb"`
}

// Render подставляет переменные вида {{name}} в текст шаблона.
// Язык выбирается по lang ("sw" или "en"), по умолчанию английский.
func (t *NotificationTemplate) Render(lang string, vars map[string]string) string {
	body := t.BodyEn
	if lang == "sw" && t.BodySw != "" {
		body = t.BodySw
	}
	for k, v := range vars {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body
}

// Notification - факт отправки (или попытки отправки) уведомления.
type Notification struct {
	gorm.Model
	TemplateID  *uint      `json:"templateId"`
	RecipientID *uint      `json:"recipientId" gorm:"index"`
	Type        string     `json:"type" gorm:"not null"`
	Status      string     `json:"status" gorm:"default:'pending'"` // pending, sent, failed
	Variables   JSONB      `json:"variables" gorm:"type:jsonb"`
	ErrorMsg    string     `json:"errorMessage"`
	SentAt      *time.Time `json:"sentAt"`
}
