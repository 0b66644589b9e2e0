package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedZaloPayCallback(t *testing.T, data map[string]interface{}) []byte {
	t.Helper()
	cfg := getZaloPayConfig()

	inner, err := json.Marshal(data)
	require.NoError(t, err)

	payload, err := json.Marshal(ZaloPayCallback{
		Data: string(inner),
		Mac:  hmacHex(cfg.Key2, string(inner)),
	})
	require.NoError(t, err)
	return payload
}

func TestZaloPayVerifyCallbackAuthentic(t *testing.T) {
	setupTest(t)
	svc := NewZaloPayService()

	payload := signedZaloPayCallback(t, map[string]interface{}{
		"app_trans_id": "240115_482913",
		"zp_trans_id":  240115000000123,
		"app_user":     "7",
		"amount":       120000,
	})

	result, err := svc.VerifyCallback(payload)
	require.NoError(t, err)
	assert.True(t, result.Authentic)
	assert.Equal(t, OutcomeSuccess, result.Result.Outcome)
	assert.Equal(t, "240115_482913", result.Result.OrderID)
	assert.Equal(t, "240115000000123", result.Result.TransID)
}

func TestZaloPayVerifyCallbackRejectsWrongMac(t *testing.T) {
	setupTest(t)
	svc := NewZaloPayService()

	inner, err := json.Marshal(map[string]interface{}{"app_trans_id": "240115_482913", "amount": 120000})
	require.NoError(t, err)

	// MAC computed with the wrong key (key1 instead of key2)
	cfg := getZaloPayConfig()
	payload, err := json.Marshal(ZaloPayCallback{
		Data: string(inner),
		Mac:  hmacHex(cfg.Key1, string(inner)),
	})
	require.NoError(t, err)

	result, err := svc.VerifyCallback(payload)
	require.NoError(t, err)
	assert.False(t, result.Authentic)
}

func TestZaloPayVerifyCallbackRejectsMutatedData(t *testing.T) {
	setupTest(t)
	svc := NewZaloPayService()

	payload := signedZaloPayCallback(t, map[string]interface{}{
		"app_trans_id": "240115_482913",
		"amount":       120000,
	})
	tampered := []byte(regexp.MustCompile(`120000`).ReplaceAllString(string(payload), "1"))

	result, err := svc.VerifyCallback(tampered)
	require.NoError(t, err)
	assert.False(t, result.Authentic)
}

func TestZaloPayCreateOrderSignsAndParsesResponse(t *testing.T) {
	setupTest(t)

	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"return_code":    1,
			"return_message": "success",
			"order_url":      "https://sb-openapi.zalopay.vn/pay/xyz",
			"zp_trans_token": "tok-123",
		})
	}))
	defer server.Close()
	config.AppConfig.ZaloPayEndpoint = server.URL

	svc := NewZaloPayService()
	pkg := &models.VIPPackage{DurationMonths: 3, Price: 120000, IsActive: true}

	result, err := svc.CreateOrder(context.Background(), 7, pkg, 12)
	require.NoError(t, err)

	assert.Equal(t, "https://sb-openapi.zalopay.vn/pay/xyz", result.PayURL)
	assert.Equal(t, "tok-123", result.Token)
	assert.Regexp(t, `^\d{6}_\d{1,6}$`, result.OrderID)

	// The submitted order's MAC covers the pipe-joined canonical fields
	cfg := getZaloPayConfig()
	macData := cfg.AppID + "|" + received["app_trans_id"].(string) + "|" + received["app_user"].(string) + "|120000|" +
		jsonNumber(received["app_time"]) + "|" + received["embed_data"].(string) + "|" + received["item"].(string)
	assert.Equal(t, hmacHex(cfg.Key1, macData), received["mac"])
}

// jsonNumber renders a decoded JSON number without an exponent or decimals
func jsonNumber(v interface{}) string {
	b, _ := json.Marshal(int64(v.(float64)))
	return string(b)
}

func TestZaloPayCreateOrderRejected(t *testing.T) {
	setupTest(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"return_code":    2,
			"return_message": "invalid mac",
		})
	}))
	defer server.Close()
	config.AppConfig.ZaloPayEndpoint = server.URL

	svc := NewZaloPayService()
	pkg := &models.VIPPackage{DurationMonths: 1, Price: 50000, IsActive: true}

	_, err := svc.CreateOrder(context.Background(), 7, pkg, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Contains(t, err.Error(), "invalid mac")
}

func TestZaloPayQueryStatusOutcomes(t *testing.T) {
	setupTest(t)

	cases := []struct {
		returnCode int
		want       Outcome
	}{
		{1, OutcomeSuccess},
		{2, OutcomeFailed},
		{3, OutcomePending},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/query", r.URL.Path)
			// MAC arrives as a query parameter, signed with key1
			cfg := getZaloPayConfig()
			macData := cfg.AppID + "|" + r.URL.Query().Get("app_trans_id") + "|" + cfg.Key1
			require.Equal(t, hmacHex(cfg.Key1, macData), r.URL.Query().Get("mac"))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"return_code": tc.returnCode,
				"zp_trans_id": 555,
			})
		}))
		config.AppConfig.ZaloPayEndpoint = server.URL

		svc := NewZaloPayService()
		result, err := svc.QueryStatus(context.Background(), "240115_482913", "")
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.Outcome, "return_code=%d", tc.returnCode)

		server.Close()
	}
}
