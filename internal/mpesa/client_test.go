// nyumbani-crm/internal/mpesa/client_test.go
package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nyumbani-crm/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(authURL, apiBaseURL string) config.MpesaSettings {
	return config.MpesaSettings{
		ConsumerKey:    "test-key",
		ConsumerSecret: "test-secret",
		Shortcode:      "174379",
		Passkey:        "test-passkey",
		Paybill:        "174379",
		CallbackURL:    "https://example.com/webhooks/mpesa/callback",
		AuthURL:        authURL,
		APIBaseURL:     apiBaseURL,
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"0712 345 678", "254712345678"},
		{"07-1234-5678", "254712345678"},
	} {
		assert.Equal(t, tc.want, FormatPhoneNumber(tc.in), "input %q", tc.in)
	}
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "test-key", user)
		assert.Equal(t, "test-secret", pass)

		// Daraja отдает expires_in строкой, не числом.
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-123",
			"expires_in":   "3599",
		})
	}))
	defer srv.Close()

	client := NewClient(testSettings(srv.URL, srv.URL), nil)
	require.NoError(t, client.RefreshToken(context.Background()))

	token, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
}

func TestRefreshTokenRequiresCredentials(t *testing.T) {
	client := NewClient(config.MpesaSettings{}, nil)
	assert.Error(t, client.RefreshToken(context.Background()))
}

func TestAccessTokenExpired(t *testing.T) {
	client := NewClient(testSettings("", ""), nil)
	client.SetAccessToken(context.Background(), "stale", -time.Minute)

	_, err := client.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestInitiateSTKPush(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "0",
			"CheckoutRequestID":   "ws_CO_123456",
			"ResponseDescription": "Success. Request accepted for processing",
		})
	}))
	defer srv.Close()

	client := NewClient(testSettings(srv.URL, srv.URL), nil)
	client.SetAccessToken(context.Background(), "token-123", time.Hour)

	checkoutID, err := client.InitiateSTKPush(context.Background(),
		"0712345678", 25000.75, "Kilimani Heights Block A Unit 12", "Rent Payment March")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123456", checkoutID)

	// Суммы только целые, телефон нормализован.
	assert.Equal(t, float64(25000), gotBody["Amount"])
	assert.Equal(t, "254712345678", gotBody["PhoneNumber"])
	// Референс и описание обрезаются под лимиты Daraja.
	assert.Equal(t, "Kilimani Heights Blo", gotBody["AccountReference"])
	assert.Equal(t, "Rent Payment ", gotBody["TransactionDesc"])
	assert.Equal(t, "CustomerPayBillOnline", gotBody["TransactionType"])
}

func TestInitiateSTKPushRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "Insufficient balance",
		})
	}))
	defer srv.Close()

	client := NewClient(testSettings(srv.URL, srv.URL), nil)
	client.SetAccessToken(context.Background(), "token-123", time.Hour)

	_, err := client.InitiateSTKPush(context.Background(), "0712345678", 1000, "ref", "")
	assert.Error(t, err)
}

func TestInitiateSTKPushWithoutToken(t *testing.T) {
	client := NewClient(testSettings("", ""), nil)
	_, err := client.InitiateSTKPush(context.Background(), "0712345678", 1000, "ref", "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestVerifyTransaction(t *testing.T) {
	for _, tc := range []struct {
		name       string
		resultCode string
		want       bool
	}{
		{"confirmed", "0", true},
		{"cancelled by user", "1032", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "ws_CO_777", body["CheckoutRequestID"])

				json.NewEncoder(w).Encode(map[string]string{
					"ResultCode": tc.resultCode,
					"ResultDesc": "whatever",
				})
			}))
			defer srv.Close()

			client := NewClient(testSettings(srv.URL, srv.URL), nil)
			client.SetAccessToken(context.Background(), "token-123", time.Hour)

			verified, err := client.VerifyTransaction(context.Background(), "ws_CO_777")
			require.NoError(t, err)
			assert.Equal(t, tc.want, verified)
		})
	}
}

func TestVerifyTransactionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testSettings(srv.URL, srv.URL), nil)
	client.SetAccessToken(context.Background(), "token-123", time.Hour)

	_, err := client.VerifyTransaction(context.Background(), "ws_CO_777")
	assert.Error(t, err)
}
