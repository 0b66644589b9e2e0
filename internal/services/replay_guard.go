package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"vip-payment-api/internal/database"
	"vip-payment-api/pkg/logging"
)

// ReplayGuard deduplicates inbound gateway callbacks through Redis.
// It is best effort only: the ledger's conditional finalize remains the
// authoritative idempotency gate, so a Redis outage degrades to processing
// every callback rather than dropping any.
//
// Seen and Mark are deliberately separate. A fingerprint is recorded only
// after the callback was fully processed; if processing fails partway the
// provider's retry must not be mistaken for a replay.
type ReplayGuard struct {
	ttl time.Duration
}

// NewReplayGuard creates a callback replay guard
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{ttl: 24 * time.Hour}
}

// Seen reports whether the same callback was already fully processed
// within the TTL. Read only; it never claims the fingerprint.
func (g *ReplayGuard) Seen(ctx context.Context, method, orderID, transID string) bool {
	client := database.GetRedis()
	if client == nil {
		return false
	}

	n, err := client.Exists(ctx, g.key(method, orderID, transID)).Result()
	if err != nil {
		logging.Errorf("Replay guard unavailable, processing callback anyway: %v", err)
		return false
	}
	if n > 0 {
		logging.Infof("Replay detected for %s callback, order %s", method, orderID)
		return true
	}
	return false
}

// Mark records a fully processed callback so later identical deliveries
// short-circuit. Best effort; a failed write only logs.
func (g *ReplayGuard) Mark(ctx context.Context, method, orderID, transID string) {
	client := database.GetRedis()
	if client == nil {
		return
	}

	if err := client.Set(ctx, g.key(method, orderID, transID), time.Now().Unix(), g.ttl).Err(); err != nil {
		logging.Errorf("Failed to record callback fingerprint: %v", err)
	}
}

func (g *ReplayGuard) key(method, orderID, transID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", method, orderID, transID)))
	return "payment:callback:" + hex.EncodeToString(sum[:])
}
