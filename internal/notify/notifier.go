// nyumbani-crm/internal/notify/notifier.go
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"nyumbani-crm/config"

	"gopkg.in/gomail.v2"
)

// Notifier - отправка уведомлений арендаторам. Фоновые задачи и обработчики
// работают только через этот интерфейс, конкретный транспорт им неизвестен.
type Notifier interface {
	SendEmail(recipient, subject, body string) error
	SendSMS(to, message string) error
}

// Service - боевая реализация: email через SMTP (gomail),
// SMS через REST API Twilio.
type Service struct {
	mail   config.MailSettings
	twilio config.TwilioSettings
	client *http.Client
}

// NewService собирает Notifier из настроек окружения.
func NewService(mail config.MailSettings, twilio config.TwilioSettings) *Service {
	return &Service{
		mail:   mail,
		twilio: twilio,
		client: &http.Client{},
	}
}

// SendEmail отправляет письмо через настроенный SMTP сервер.
func (s *Service) SendEmail(recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("пустой адрес получателя")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.mail.Sender)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.mail.Host, s.mail.Port, s.mail.Username, s.mail.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %w", err)
	}

	slog.Info("Email отправлен", "recipient", recipient, "subject", subject)
	return nil
}

// SendSMS отправляет SMS через Twilio Messages API.
func (s *Service) SendSMS(to, message string) error {
	if s.twilio.AccountSID == "" || s.twilio.AuthToken == "" {
		return fmt.Errorf("учетные данные Twilio не настроены")
	}
	if to == "" {
		return fmt.Errorf("пустой номер получателя")
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.twilio.AccountSID)
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.twilio.PhoneNumber)
	form.Set("Body", message)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.twilio.AccountSID, s.twilio.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса к Twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Twilio вернул статус %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Info("SMS отправлено", "to", to)
	return nil
}
