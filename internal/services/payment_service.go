package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/pkg/logging"

	"gorm.io/gorm"
)

// PaymentService is the reconciliation engine. Three entry points converge
// on a transaction: the inbound gateway callback, the client-triggered
// status poll, and the privileged manual override. All of them funnel
// through finalizeAndGrant, whose ledger-level compare-and-set is the only
// idempotency gate: the entitlement is granted if and only if the finalize
// applied with a completed outcome, so concurrent paths cannot double-grant.
type PaymentService struct {
	gateways map[string]Gateway
	guard    replayDetector
	notifier *PurchaseNotifier
}

// replayDetector is the duplicate-callback check, satisfied by ReplayGuard.
// A callback is marked only once it was fully processed; Seen must stay
// read-only so a provider retry after a transient failure is reprocessed.
type replayDetector interface {
	Seen(ctx context.Context, method, orderID, transID string) bool
	Mark(ctx context.Context, method, orderID, transID string)
}

// NewPaymentService creates the engine with both production gateways
func NewPaymentService() *PaymentService {
	return NewPaymentServiceWith(NewMomoService(), NewZaloPayService())
}

// NewPaymentServiceWith creates the engine over an explicit gateway set
func NewPaymentServiceWith(gateways ...Gateway) *PaymentService {
	s := &PaymentService{
		gateways: make(map[string]Gateway),
		guard:    NewReplayGuard(),
		notifier: NewPurchaseNotifier(),
	}
	for _, gw := range gateways {
		s.gateways[gw.Method()] = gw
	}
	return s
}

// InitiateResult is returned to the purchasing client
type InitiateResult struct {
	TransactionID uint   `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	PayURL        string `json:"pay_url"`
	Token         string `json:"token,omitempty"`
}

// StatusResult is the caller-facing view of a transaction
type StatusResult struct {
	TransactionID uint      `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Duration      int       `json:"duration"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Initiate reserves a ledger row, creates the external order, and attaches
// the provider identifiers. Package validation happens before any external
// call. If the gateway call fails the reservation stays pending and
// unattached, recoverable later through RepairOrphan.
func (s *PaymentService) Initiate(ctx context.Context, userID uint, durationMonths int, method string) (*InitiateResult, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}

	pkg, err := database.GetVIPPackageByDuration(durationMonths)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidDuration
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	tx, err := database.CreateTransaction(userID, pkg.Price, durationMonths, method)
	if err != nil {
		return nil, err
	}

	order, err := gw.CreateOrder(ctx, userID, pkg, tx.ID)
	if err != nil {
		logging.Errorf("Order creation failed for transaction %d: %v", tx.ID, err)
		return nil, err
	}

	switch method {
	case models.MethodZaloPay:
		err = database.AttachZaloPayOrder(tx.ID, order.OrderID, order.Token)
	default:
		err = database.AttachMomoOrder(tx.ID, order.OrderID, order.RequestID)
	}
	if err != nil {
		// The external order exists but the row is unattached; RepairOrphan
		// can re-link it from the order id.
		logging.Errorf("Failed to attach order %s to transaction %d: %v", order.OrderID, tx.ID, err)
		return nil, err
	}

	logging.Infof("Created transaction %d with order %s via %s", tx.ID, order.OrderID, method)

	return &InitiateResult{
		TransactionID: tx.ID,
		OrderID:       order.OrderID,
		PayURL:        order.PayURL,
		Token:         order.Token,
	}, nil
}

// HandleCallback processes an inbound gateway notification. An inauthentic
// payload yields ErrSignatureInvalid and zero state changes. A replayed or
// already-finalized callback is a successful no-op.
func (s *PaymentService) HandleCallback(ctx context.Context, method string, payload []byte) (*GatewayResult, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}

	cb, err := gw.VerifyCallback(payload)
	if err != nil {
		return nil, err
	}
	if !cb.Authentic {
		logging.Errorf("Rejected %s callback with invalid signature", method)
		return nil, ErrSignatureInvalid
	}

	result := cb.Result
	if s.guard.Seen(ctx, method, result.OrderID, result.TransID) {
		return &result, nil
	}

	tx, err := s.findByOrderID(method, result.OrderID)
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomePending {
		return &result, nil
	}

	if err := s.finalizeAndGrant(tx, result.Outcome, result.TransID); err != nil {
		return nil, err
	}
	s.guard.Mark(ctx, method, result.OrderID, result.TransID)
	return &result, nil
}

// CheckStatus reports a transaction's state, polling the gateway for
// ground truth while the row is still pending. Non-privileged callers may
// only query their own transactions; callerUserID 0 means anonymous and
// skips the ownership check. A gateway error or pending sentinel leaves
// the row pending for a later retry.
func (s *PaymentService) CheckStatus(ctx context.Context, method, orderID string, callerUserID uint, privileged bool) (*StatusResult, error) {
	tx, err := s.findByOrderID(method, orderID)
	if err != nil {
		return nil, err
	}

	if !privileged && callerUserID != 0 && tx.UserID != callerUserID {
		return nil, ErrAccessDenied
	}

	message := ""
	if tx.Status == models.StatusPending {
		gw, ok := s.gateways[method]
		if !ok {
			return nil, fmt.Errorf("unsupported payment method %q", method)
		}
		result, err := gw.QueryStatus(ctx, orderID, tx.MomoRequestID)
		if err != nil {
			// Leave the row pending; callback or a later poll will settle it.
			logging.Errorf("Status query failed for order %s: %v", orderID, err)
		} else if result.Outcome != OutcomePending {
			if err := s.finalizeAndGrant(tx, result.Outcome, result.TransID); err != nil {
				return nil, err
			}
			if fresh, err := database.GetTransactionByID(tx.ID); err == nil {
				tx = fresh
			}
			message = result.Message
		}
	}

	return &StatusResult{
		TransactionID: tx.ID,
		OrderID:       orderID,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Duration:      tx.DurationMonths,
		Message:       message,
		CreatedAt:     tx.CreatedAt,
	}, nil
}

// ManualComplete force-completes a stuck transaction with a synthetic
// provider transaction id. Privilege is enforced at the transport layer;
// the finalize gate still applies, so completing twice is a no-op.
func (s *PaymentService) ManualComplete(orderID string) (*models.Transaction, error) {
	tx, err := database.FindTransactionByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	syntheticID := fmt.Sprintf("MANUAL_%d", time.Now().UnixMilli())
	if err := s.finalizeAndGrant(tx, OutcomeSuccess, syntheticID); err != nil {
		return nil, err
	}

	return database.GetTransactionByID(tx.ID)
}

var momoOrderIDPattern = regexp.MustCompile(`^VIP_\d+_(\d+)$`)

// RepairOrphan re-links an externally known MoMo order id to the most
// recent pending row that never got its identifiers attached (a crash
// between reserve and attach), then reconciles it through the poll path.
// The request id is reconstructed from the timestamp embedded in the
// order id, which CreateOrder guarantees is the same for both.
func (s *PaymentService) RepairOrphan(ctx context.Context, orderID string) (*StatusResult, error) {
	m := momoOrderIDPattern.FindStringSubmatch(orderID)
	if m == nil {
		return nil, fmt.Errorf("invalid order id format %q, expected VIP_<transaction>_<timestamp>", orderID)
	}
	requestID := "REQ_" + m[1]

	tx, err := database.GetLatestUnattachedTransaction()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if err := database.AttachMomoOrder(tx.ID, orderID, requestID); err != nil {
		return nil, err
	}

	logging.Infof("Repaired orphan transaction %d with order %s", tx.ID, orderID)

	return s.CheckStatus(ctx, models.MethodMomo, orderID, 0, true)
}

// findByOrderID locates the ledger row for a provider order identifier
func (s *PaymentService) findByOrderID(method, orderID string) (*models.Transaction, error) {
	var tx *models.Transaction
	var err error
	switch method {
	case models.MethodZaloPay:
		tx, err = database.GetTransactionByZaloAppTransID(orderID)
	default:
		tx, err = database.GetTransactionByMomoOrderID(orderID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// finalizeAndGrant is the single finalize-and-grant routine shared by the
// callback, poll, and manual paths. The conditional update inside
// FinalizeTransaction decides the race between concurrent paths; the loser
// observes applied=false and must not touch the entitlement.
func (s *PaymentService) finalizeAndGrant(tx *models.Transaction, outcome Outcome, externalTransID string) error {
	status := models.StatusFailed
	if outcome == OutcomeSuccess {
		status = models.StatusCompleted
	}

	applied, err := database.FinalizeTransaction(tx.ID, status, tx.PaymentMethod, externalTransID)
	if err != nil {
		return err
	}
	if !applied {
		// Already finalized by another path. Not an error.
		logging.Infof("Transaction %d already finalized, skipping", tx.ID)
		return nil
	}

	logging.Infof("Transaction %d finalized as %s", tx.ID, status)

	if status != models.StatusCompleted {
		return nil
	}

	if err := s.grantForTransaction(tx); err != nil {
		// The transaction is completed but the grant failed; surface the
		// error so operators can re-apply via manual tooling.
		logging.Errorf("VIP grant failed for transaction %d, user %d: %v", tx.ID, tx.UserID, err)
		return err
	}
	return nil
}

func (s *PaymentService) grantForTransaction(tx *models.Transaction) error {
	if err := GrantVIP(tx.UserID, tx.DurationMonths); err != nil {
		return err
	}
	if fresh, err := database.GetTransactionByID(tx.ID); err == nil {
		go s.notifier.NotifyCompleted(fresh)
	}
	return nil
}
