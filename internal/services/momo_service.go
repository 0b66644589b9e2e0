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
	"net/http"
	"time"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/pkg/logging"
)

// MomoService implements the Gateway capability set for MoMo.
// MoMo signs requests and callbacks with a single secret key over a
// canonical query-string style concatenation in MoMo's documented field
// order. resultCode 0 means success, 1000 means still pending.
type MomoService struct {
	client *http.Client
}

// NewMomoService creates a MoMo gateway adapter
func NewMomoService() *MomoService {
	return &MomoService{
		client: &http.Client{
			Timeout: time.Duration(config.AppConfig.GatewayTimeoutSeconds) * time.Second,
		},
	}
}

type momoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	ReturnURL   string
	NotifyURL   string
}

// getMomoConfig reads the live configuration. Settings rows win over env
// defaults; fetched per operation so key rotation needs no restart.
func getMomoConfig() momoConfig {
	cfg := config.AppConfig
	return momoConfig{
		PartnerCode: database.SettingOrDefault("momo_partner_code", cfg.MomoPartnerCode),
		AccessKey:   database.SettingOrDefault("momo_access_key", cfg.MomoAccessKey),
		SecretKey:   database.SettingOrDefault("momo_secret_key", cfg.MomoSecretKey),
		Endpoint:    database.SettingOrDefault("momo_endpoint", cfg.MomoEndpoint),
		ReturnURL:   database.SettingOrDefault("momo_return_url", cfg.MomoReturnURL),
		NotifyURL:   database.SettingOrDefault("momo_notify_url", cfg.MomoNotifyURL),
	}
}

// generateSignature computes the hex HMAC-SHA256 over a canonical string
func generateSignature(rawData, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(rawData))
	return hex.EncodeToString(mac.Sum(nil))
}

// Method returns the payment method tag
func (s *MomoService) Method() string {
	return models.MethodMomo
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	PartnerName string `json:"partnerName"`
	StoreID     string `json:"storeId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	RequestType string `json:"requestType"`
	AutoCapture bool   `json:"autoCapture"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

// CreateOrder submits a capture-wallet order to MoMo. The order id embeds
// the internal transaction id and a millisecond timestamp, and the request
// id reuses the same timestamp so orphan repair can reconstruct it from
// the order id alone.
func (s *MomoService) CreateOrder(ctx context.Context, userID uint, pkg *models.VIPPackage, transactionID uint) (*CreateOrderResult, error) {
	cfg := getMomoConfig()

	now := time.Now().UnixMilli()
	orderID := fmt.Sprintf("VIP_%d_%d", transactionID, now)
	requestID := fmt.Sprintf("REQ_%d", now)
	amount := int64(pkg.Price)

	orderInfo := pkg.Title
	if orderInfo == "" {
		orderInfo = fmt.Sprintf("VIP %d month subscription", pkg.DurationMonths)
	}
	requestType := "captureWallet"
	extraData := ""

	// MoMo's exact field order for the create signature
	rawSignature := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		cfg.AccessKey, amount, extraData, cfg.NotifyURL, orderID, orderInfo, cfg.PartnerCode, cfg.ReturnURL, requestID, requestType)

	body := momoCreateRequest{
		PartnerCode: cfg.PartnerCode,
		PartnerName: "IOSGods Store",
		StoreID:     "IOSGodsStore",
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: cfg.ReturnURL,
		IpnURL:      cfg.NotifyURL,
		Lang:        "vi",
		RequestType: requestType,
		AutoCapture: true,
		ExtraData:   extraData,
		Signature:   generateSignature(rawSignature, cfg.SecretKey),
	}

	var resp momoCreateResponse
	if err := s.postJSON(ctx, cfg.Endpoint+"/v2/gateway/api/create", body, &resp); err != nil {
		return nil, err
	}

	if resp.ResultCode != 0 {
		logging.Errorf("MoMo create rejected: resultCode=%d message=%s orderId=%s", resp.ResultCode, resp.Message, orderID)
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Message)
	}

	return &CreateOrderResult{
		PayURL:    resp.PayURL,
		OrderID:   orderID,
		RequestID: requestID,
	}, nil
}

// MomoCallback is the IPN payload MoMo posts to the callback URL
type MomoCallback struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// VerifyCallback recomputes the IPN signature over MoMo's documented field
// order. Any mismatch yields Authentic=false; the payload must then be
// treated as untrusted in full.
func (s *MomoService) VerifyCallback(payload []byte) (*CallbackResult, error) {
	var cb MomoCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("invalid MoMo callback payload: %w", err)
	}

	cfg := getMomoConfig()

	// MoMo's exact field order for the IPN signature
	rawData := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		cfg.AccessKey, cb.Amount, cb.ExtraData, cb.Message, cb.OrderID, cb.OrderInfo, cb.OrderType,
		cfg.PartnerCode, cb.PayType, cb.RequestID, cb.ResponseTime, cb.ResultCode, cb.TransID)

	expected := generateSignature(rawData, cfg.SecretKey)

	return &CallbackResult{
		Authentic: hmac.Equal([]byte(expected), []byte(cb.Signature)),
		Result: GatewayResult{
			Outcome: momoOutcome(cb.ResultCode),
			OrderID: cb.OrderID,
			TransID: fmt.Sprintf("%d", cb.TransID),
			Message: cb.Message,
		},
	}, nil
}

type momoQueryResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	TransID    int64  `json:"transId"`
}

// QueryStatus polls MoMo for provider-side truth about an order
func (s *MomoService) QueryStatus(ctx context.Context, orderID, requestID string) (*GatewayResult, error) {
	cfg := getMomoConfig()

	rawSignature := fmt.Sprintf("accessKey=%s&orderId=%s&partnerCode=%s&requestId=%s",
		cfg.AccessKey, orderID, cfg.PartnerCode, requestID)

	body := map[string]interface{}{
		"partnerCode": cfg.PartnerCode,
		"requestId":   requestID,
		"orderId":     orderID,
		"signature":   generateSignature(rawSignature, cfg.SecretKey),
		"lang":        "vi",
	}

	var resp momoQueryResponse
	if err := s.postJSON(ctx, cfg.Endpoint+"/v2/gateway/api/query", body, &resp); err != nil {
		return nil, err
	}

	return &GatewayResult{
		Outcome: momoOutcome(resp.ResultCode),
		OrderID: orderID,
		TransID: fmt.Sprintf("%d", resp.TransID),
		Message: resp.Message,
	}, nil
}

// momoOutcome maps MoMo result codes onto the neutral outcome.
// 0 is success and 1000 is the pending sentinel; everything else failed.
func momoOutcome(resultCode int) Outcome {
	switch resultCode {
	case 0:
		return OutcomeSuccess
	case 1000:
		return OutcomePending
	default:
		return OutcomeFailed
	}
}

func (s *MomoService) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal MoMo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create MoMo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logging.Errorf("MoMo request error: %v", err)
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
