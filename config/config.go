// nyumbani-crm/config/config.go
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// JwtKey - ключ для подписи JWT токенов. Загружается из окружения при старте.
var JwtKey []byte

// MpesaSettings - настройки для интеграции с Daraja API (M-Pesa).
type MpesaSettings struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Paybill        string
	CallbackURL    string
	AuthURL        string
	APIBaseURL     string
}

// TwilioSettings - настройки для отправки SMS через Twilio.
type TwilioSettings struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// MailSettings - настройки SMTP для email уведомлений.
type MailSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// LoadEnv загружает переменные окружения из .env файла (если он есть)
// и инициализирует JWT ключ. Вызывается один раз при старте приложения.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("Файл .env не найден, используем переменные окружения системы")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Критическая ошибка: переменная окружения JWT_SECRET не установлена.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}

// Mpesa возвращает настройки M-Pesa из окружения.
// Отсутствие ключей не фатально: задачи, которым нужен шлюз, сами
// логируют ошибку конфигурации и пропускают запуск.
func Mpesa() MpesaSettings {
	return MpesaSettings{
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		Shortcode:      os.Getenv("MPESA_SHORTCODE"),
		Passkey:        os.Getenv("MPESA_PASSKEY"),
		Paybill:        getEnv("MPESA_PAYBILL", "174379"),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		AuthURL:        getEnv("MPESA_AUTH_URL", "https://api.safaricom.co.ke/oauth/v1/generate?grant_type=client_credentials"),
		APIBaseURL:     getEnv("MPESA_API_BASE_URL", "https://api.safaricom.co.ke"),
	}
}

// Twilio возвращает настройки Twilio из окружения.
func Twilio() TwilioSettings {
	return TwilioSettings{
		AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}
}

// Mail возвращает настройки SMTP из окружения.
func Mail() MailSettings {
	return MailSettings{
		Host:     getEnv("MAIL_HOST", "localhost"),
		Port:     getEnvInt("MAIL_PORT", 587),
		Username: os.Getenv("MAIL_USERNAME"),
		Password: os.Getenv("MAIL_PASSWORD"),
		Sender:   getEnv("MAIL_SENDER", "no-reply@nyumbani.co.ke"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("Некорректное числовое значение в окружении", "key", key, "value", v)
	}
	return fallback
}
