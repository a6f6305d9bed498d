// nyumbani-crm/internal/mpesa/client.go
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nyumbani-crm/config"

	"github.com/redis/go-redis/v9"
)

// ErrNoToken возвращается, когда access token отсутствует или истек.
// Вызовы к Daraja будут падать с этой ошибкой до следующего цикла
// обновления токена.
var ErrNoToken = errors.New("mpesa: access token отсутствует или истек")

const tokenCacheKey = "mpesa:access_token"

// Client - клиент Daraja API (M-Pesa): OAuth токен, STK push и проверка
// транзакций. Токен держится в памяти и дублируется в Redis (если он
// настроен), чтобы несколько инстансов делили один токен.
type Client struct {
	settings config.MpesaSettings
	http     *http.Client
	rdb      *redis.Client

	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient собирает клиента Daraja. rdb может быть nil - тогда токен
// живет только в памяти процесса.
func NewClient(settings config.MpesaSettings, rdb *redis.Client) *Client {
	return &Client{
		settings: settings,
		http:     &http.Client{Timeout: 30 * time.Second},
		rdb:      rdb,
	}
}

// SetAccessToken сохраняет токен и срок его жизни.
func (c *Client) SetAccessToken(ctx context.Context, token string, expiresIn time.Duration) {
	c.mu.Lock()
	c.accessToken = token
	c.tokenExpiry = time.Now().Add(expiresIn)
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, tokenCacheKey, token, expiresIn).Err(); err != nil {
			slog.Error("Не удалось закэшировать токен M-Pesa в Redis", "error", err)
		}
	}
}

// AccessToken возвращает действующий токен: сначала из памяти,
// при промахе - из Redis.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiry := c.accessToken, c.tokenExpiry
	c.mu.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return token, nil
	}

	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, tokenCacheKey).Result()
		if err == nil && cached != "" {
			ttl, _ := c.rdb.TTL(ctx, tokenCacheKey).Result()
			c.mu.Lock()
			c.accessToken = cached
			c.tokenExpiry = time.Now().Add(ttl)
			c.mu.Unlock()
			return cached, nil
		}
		if err != nil && err != redis.Nil {
			slog.Error("Ошибка чтения токена M-Pesa из Redis", "error", err)
		}
	}

	return "", ErrNoToken
}

// RefreshToken получает новый OAuth токен по client credentials.
// Запускается планировщиком каждые ~50 минут (токен живет час).
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.settings.ConsumerKey == "" || c.settings.ConsumerSecret == "" {
		slog.Error("MPESA_CONSUMER_KEY или MPESA_CONSUMER_SECRET не настроены")
		return errors.New("mpesa: учетные данные не настроены")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.AuthURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.settings.ConsumerKey, c.settings.ConsumerSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa: запрос токена не удался: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mpesa: auth endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("mpesa: не удалось разобрать ответ auth endpoint: %w", err)
	}
	if payload.AccessToken == "" {
		return errors.New("mpesa: в ответе нет access_token")
	}

	expiresIn := 3599 * time.Second
	if payload.ExpiresIn != "" {
		if d, perr := time.ParseDuration(payload.ExpiresIn + "s"); perr == nil {
			expiresIn = d
		}
	}

	c.SetAccessToken(ctx, payload.AccessToken, expiresIn)
	slog.Info("Токен M-Pesa успешно обновлен")
	return nil
}

// InitiateSTKPush отправляет STK push запрос на телефон плательщика.
// Возвращает CheckoutRequestID либо ошибку.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount float64, accountReference, description string) (string, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	if description == "" {
		description = "Rent Payment"
	}
	if len(accountReference) > 20 {
		accountReference = accountReference[:20]
	}
	if len(description) > 13 {
		description = description[:13]
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": c.settings.Shortcode,
		"Password":          c.generatePassword(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(amount), // Daraja принимает только целые суммы
		"PartyA":            FormatPhoneNumber(phone),
		"PartyB":            c.settings.Shortcode,
		"PhoneNumber":       FormatPhoneNumber(phone),
		"CallBackURL":       c.settings.CallbackURL,
		"AccountReference":  accountReference,
		"TransactionDesc":   description,
	}

	var result struct {
		ResponseCode      string `json:"ResponseCode"`
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseDesc      string `json:"ResponseDescription"`
	}
	if err := c.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, &result); err != nil {
		return "", err
	}

	if result.ResponseCode != "0" {
		return "", fmt.Errorf("mpesa: STK push отклонен: %s", result.ResponseDesc)
	}
	return result.CheckoutRequestID, nil
}

// VerifyTransaction проверяет статус STK push транзакции через
// Transaction Query API. Возвращает true только при ResultCode "0".
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (bool, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return false, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": c.settings.Shortcode,
		"Password":          c.generatePassword(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": transactionID,
	}

	var result struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := c.postJSON(ctx, "/mpesa/stkpushquery/v1/query", token, payload, &result); err != nil {
		return false, err
	}

	if result.ResultCode == "0" {
		return true, nil
	}
	slog.Warn("M-Pesa не подтвердил транзакцию",
		"transaction_id", transactionID, "result_code", result.ResultCode, "result_desc", result.ResultDesc)
	return false, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa: запрос %s не удался: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mpesa: %s вернул статус %d: %s", path, resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// generatePassword: base64(shortcode + passkey + timestamp), как требует Daraja.
func (c *Client) generatePassword(timestamp string) string {
	raw := c.settings.Shortcode + c.settings.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// FormatPhoneNumber приводит номер к формату 254XXXXXXXXX:
// выбрасывает нецифровые символы, убирает ведущий ноль,
// добавляет код страны при его отсутствии.
func FormatPhoneNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	normalized = strings.TrimPrefix(normalized, "0")
	if !strings.HasPrefix(normalized, "254") {
		normalized = "254" + normalized
	}
	return normalized
}
