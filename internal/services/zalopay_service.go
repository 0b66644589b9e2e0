package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/pkg/logging"
)

// ZaloPayService implements the Gateway capability set for ZaloPay.
// Unlike MoMo, ZaloPay uses two secrets: key1 signs outbound requests and
// key2 verifies inbound callbacks. Fields are pipe-joined, not query
// encoded, and return_code 1 means success, 2 failed, 3 pending.
type ZaloPayService struct {
	client *http.Client
}

// NewZaloPayService creates a ZaloPay gateway adapter
func NewZaloPayService() *ZaloPayService {
	return &ZaloPayService{
		client: &http.Client{
			Timeout: time.Duration(config.AppConfig.GatewayTimeoutSeconds) * time.Second,
		},
	}
}

type zaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
}

// getZaloPayConfig reads the live configuration per operation. Values are
// trimmed because the settings UI has shipped keys with trailing spaces.
func getZaloPayConfig() zaloPayConfig {
	cfg := config.AppConfig
	return zaloPayConfig{
		AppID:       strings.TrimSpace(database.SettingOrDefault("zalopay_app_id", cfg.ZaloPayAppID)),
		Key1:        strings.TrimSpace(database.SettingOrDefault("zalopay_key1", cfg.ZaloPayKey1)),
		Key2:        strings.TrimSpace(database.SettingOrDefault("zalopay_key2", cfg.ZaloPayKey2)),
		Endpoint:    database.SettingOrDefault("zalopay_endpoint", cfg.ZaloPayEndpoint),
		CallbackURL: database.SettingOrDefault("zalopay_callback_url", cfg.ZaloPayCallbackURL),
	}
}

func hmacHex(key, data string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Method returns the payment method tag
func (s *ZaloPayService) Method() string {
	return models.MethodZaloPay
}

type zaloPayCreateResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZpTransToken  string `json:"zp_trans_token"`
}

// CreateOrder submits an order to ZaloPay. The app_trans_id follows
// ZaloPay's required yymmdd_xxxxxx format and maps the external order back
// to the internal transaction through the ledger.
func (s *ZaloPayService) CreateOrder(ctx context.Context, userID uint, pkg *models.VIPPackage, transactionID uint) (*CreateOrderResult, error) {
	cfg := getZaloPayConfig()

	appID, err := strconv.Atoi(cfg.AppID)
	if err != nil {
		return nil, fmt.Errorf("invalid zalopay_app_id %q: %w", cfg.AppID, err)
	}

	appTransID := fmt.Sprintf("%s_%d", time.Now().Format("060102"), rand.Intn(1000000))
	appUser := strconv.FormatUint(uint64(userID), 10)
	appTime := time.Now().UnixMilli()
	amount := int64(pkg.Price)

	embedData, _ := json.Marshal(map[string]string{"redirecturl": "http://localhost:3000/vip"})
	items := "[]"

	order := map[string]interface{}{
		"app_id":       appID,
		"app_trans_id": appTransID,
		"app_user":     appUser,
		"app_time":     appTime,
		"item":         items,
		"embed_data":   string(embedData),
		"amount":       amount,
		"description":  fmt.Sprintf("IOSGods VIP %d Month(s) - Payment for #%d", pkg.DurationMonths, transactionID),
		"bank_code":    "zalopayapp",
		"callback_url": cfg.CallbackURL,
	}

	// app_id|app_trans_id|app_user|amount|app_time|embed_data|item
	macData := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		cfg.AppID, appTransID, appUser, amount, appTime, string(embedData), items)
	order["mac"] = hmacHex(cfg.Key1, macData)

	var resp zaloPayCreateResponse
	if err := s.postJSON(ctx, cfg.Endpoint+"/create", order, &resp); err != nil {
		return nil, err
	}

	if resp.ReturnCode != 1 {
		logging.Errorf("ZaloPay create rejected: return_code=%d message=%s app_trans_id=%s", resp.ReturnCode, resp.ReturnMessage, appTransID)
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.ReturnMessage)
	}

	return &CreateOrderResult{
		PayURL:  resp.OrderURL,
		OrderID: appTransID,
		Token:   resp.ZpTransToken,
	}, nil
}

// ZaloPayCallback is the envelope ZaloPay posts to the callback URL:
// a serialized data string plus its key2 MAC.
type ZaloPayCallback struct {
	Data string `json:"data"`
	Mac  string `json:"mac"`
}

type zaloPayCallbackData struct {
	AppTransID string `json:"app_trans_id"`
	ZpTransID  int64  `json:"zp_trans_id"`
	AppUser    string `json:"app_user"`
	Amount     int64  `json:"amount"`
}

// VerifyCallback recomputes the key2 MAC over the raw data string. ZaloPay
// only posts callbacks for successful payments, so an authentic callback
// always normalizes to a success outcome.
func (s *ZaloPayService) VerifyCallback(payload []byte) (*CallbackResult, error) {
	var cb ZaloPayCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("invalid ZaloPay callback payload: %w", err)
	}

	cfg := getZaloPayConfig()
	expected := hmacHex(cfg.Key2, cb.Data)
	if !hmac.Equal([]byte(expected), []byte(cb.Mac)) {
		return &CallbackResult{Authentic: false}, nil
	}

	var data zaloPayCallbackData
	if err := json.Unmarshal([]byte(cb.Data), &data); err != nil {
		return nil, fmt.Errorf("invalid ZaloPay callback data: %w", err)
	}

	return &CallbackResult{
		Authentic: true,
		Result: GatewayResult{
			Outcome: OutcomeSuccess,
			OrderID: data.AppTransID,
			TransID: fmt.Sprintf("%d", data.ZpTransID),
		},
	}, nil
}

type zaloPayQueryResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	ZpTransID     int64  `json:"zp_trans_id"`
}

// QueryStatus polls ZaloPay for order state. The requestID parameter is
// unused; ZaloPay correlates on app_trans_id alone.
func (s *ZaloPayService) QueryStatus(ctx context.Context, orderID, requestID string) (*GatewayResult, error) {
	cfg := getZaloPayConfig()

	// app_id|app_trans_id|key1
	macData := fmt.Sprintf("%s|%s|%s", cfg.AppID, orderID, cfg.Key1)

	params := url.Values{}
	params.Set("app_id", cfg.AppID)
	params.Set("app_trans_id", orderID)
	params.Set("mac", hmacHex(cfg.Key1, macData))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZaloPay query: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logging.Errorf("ZaloPay query error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	var out zaloPayQueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable response: %v", ErrGatewayUnavailable, err)
	}

	return &GatewayResult{
		Outcome: zaloPayOutcome(out.ReturnCode),
		OrderID: orderID,
		TransID: fmt.Sprintf("%d", out.ZpTransID),
		Message: out.ReturnMessage,
	}, nil
}

// zaloPayOutcome maps return codes: 1 success, 2 failed, 3 processing.
func zaloPayOutcome(returnCode int) Outcome {
	switch returnCode {
	case 1:
		return OutcomeSuccess
	case 2:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

func (s *ZaloPayService) postJSON(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ZaloPay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create ZaloPay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logging.Errorf("ZaloPay request error: %v", err)
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: unreadable response: %v", ErrGatewayUnavailable, err)
	}
	return nil
}
