package services

import (
	"context"
	"errors"
	"vip-payment-api/internal/models"
)

// Reconciliation error taxonomy. Adapter and engine errors are wrapped
// around these sentinels so callers never see provider-specific shapes.
var (
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrGatewayRejected     = errors.New("payment gateway rejected the request")
	ErrSignatureInvalid    = errors.New("invalid gateway signature")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidDuration     = errors.New("invalid package duration")
	ErrPackageInactive     = errors.New("package is not active")
	ErrAccessDenied        = errors.New("access denied")
)

// Outcome is the provider-neutral result of a gateway-side payment.
// Providers disagree on conventions (MoMo: 0 success / 1000 pending,
// ZaloPay: 1 success / 2 failed / 3 pending); adapters normalize here.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// CreateOrderResult is the provider-neutral result of creating an
// external order. RequestID and Token are only set by the provider that
// uses them.
type CreateOrderResult struct {
	PayURL    string
	OrderID   string // MoMo orderId / ZaloPay app_trans_id
	RequestID string // MoMo requestId
	Token     string // ZaloPay zp_trans_token
}

// GatewayResult carries the normalized outcome of a callback or poll.
type GatewayResult struct {
	Outcome Outcome
	OrderID string // external order identifier
	TransID string // provider-side transaction identifier
	Message string // provider's human-readable message, for logging
}

// CallbackResult is the outcome of verifying an inbound callback payload.
// Callers must never apply side effects when Authentic is false.
type CallbackResult struct {
	Authentic bool
	Result    GatewayResult
}

// Gateway is the per-provider capability set: order creation, callback
// signature verification, and synchronous status polling. Implementations
// fetch their configuration per operation and never retry internally.
type Gateway interface {
	Method() string
	CreateOrder(ctx context.Context, userID uint, pkg *models.VIPPackage, transactionID uint) (*CreateOrderResult, error)
	VerifyCallback(payload []byte) (*CallbackResult, error)
	QueryStatus(ctx context.Context, orderID, requestID string) (*GatewayResult, error)
}
