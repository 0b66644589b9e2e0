package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/pkg/logging"

	"github.com/google/uuid"
)

// PurchaseNotifier posts completed-purchase events to an operator-configured
// webhook. The target URL and signing secret come from system settings; if
// no URL is configured the notifier is a no-op. Delivery never affects
// reconciliation: failures only log.
type PurchaseNotifier struct {
	httpClient *http.Client
}

// NewPurchaseNotifier creates a purchase event notifier
func NewPurchaseNotifier() *PurchaseNotifier {
	return &PurchaseNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PurchaseEvent is the payload posted to the webhook
type PurchaseEvent struct {
	EventID        string  `json:"event_id"`
	Event          string  `json:"event"`
	TransactionID  uint    `json:"transaction_id"`
	OrderID        string  `json:"order_id"`
	PaymentMethod  string  `json:"payment_method"`
	UserID         uint    `json:"user_id"`
	Amount         float64 `json:"amount"`
	DurationMonths int     `json:"duration_months"`
	Timestamp      string  `json:"timestamp"`
}

// NotifyCompleted fires a purchase.completed event for a finalized
// transaction. Called in a goroutine by the reconciliation engine.
func (pn *PurchaseNotifier) NotifyCompleted(tx *models.Transaction) {
	webhookURL := database.SettingOrDefault("purchase_webhook_url", "")
	if webhookURL == "" {
		return
	}
	secret := database.SettingOrDefault("purchase_webhook_secret", "")

	event := PurchaseEvent{
		EventID:        uuid.NewString(),
		Event:          "purchase.completed",
		TransactionID:  tx.ID,
		OrderID:        tx.OrderID(),
		PaymentMethod:  tx.PaymentMethod,
		UserID:         tx.UserID,
		Amount:         tx.Amount,
		DurationMonths: tx.DurationMonths,
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	pn.sendWithRetry(webhookURL, secret, event)
}

// sendWithRetry retries on a 1s, 5s, 30s schedule before giving up
func (pn *PurchaseNotifier) sendWithRetry(webhookURL, secret string, event PurchaseEvent) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}

	for attempt := 0; attempt < len(retryDelays); attempt++ {
		err := pn.send(webhookURL, secret, event)
		if err == nil {
			logging.Infof("Purchase webhook delivered - event: %s, transaction: %d, attempt: %d",
				event.EventID, event.TransactionID, attempt+1)
			return
		}

		logging.Errorf("Purchase webhook failed - event: %s, transaction: %d, attempt: %d, error: %v",
			event.EventID, event.TransactionID, attempt+1, err)

		if attempt < len(retryDelays)-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Purchase webhook abandoned after %d attempts - event: %s", len(retryDelays), event.EventID)
}

func (pn *PurchaseNotifier) send(webhookURL, secret string, event PurchaseEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VIPPayment-Webhook/1.0")
	if secret != "" {
		req.Header.Set("X-Payment-Signature", pn.sign(jsonData, secret))
	}

	resp, err := pn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (pn *PurchaseNotifier) sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
