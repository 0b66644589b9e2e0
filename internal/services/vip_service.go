package services

import (
	"time"
	"vip-payment-api/internal/database"
	"vip-payment-api/pkg/logging"
)

// ComputeNewExpiry returns the VIP expiry resulting from a purchase.
//
// purchasedMonths 0 means a lifetime package: the result is nil and the
// caller must persist is_vip=true alongside it. A nil expiry only means
// lifetime in combination with an active flag; nil plus inactive is "no
// entitlement", so callers can never infer lifetime from nil alone.
//
// For timed packages the new expiry extends the current one when the
// entitlement is still active, otherwise it starts from now. Month
// arithmetic is calendar based with end-of-month clamping, so
// Jan 31 + 1 month lands on Feb 28 (or 29), not Mar 2.
func ComputeNewExpiry(currentExpiry *time.Time, isActive bool, purchasedMonths int, now time.Time) *time.Time {
	if purchasedMonths == 0 {
		return nil // lifetime
	}

	base := now
	if isActive && currentExpiry != nil && currentExpiry.After(now) {
		base = *currentExpiry
	}

	expiry := addMonths(base, purchasedMonths)
	return &expiry
}

// addMonths adds calendar months, clamping the day to the target month's
// last day instead of letting time.AddDate normalize past it.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	lastDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// GrantVIP computes and persists the entitlement for a completed purchase.
// Only the reconciliation engine calls this, and only after winning the
// finalize race for the transaction.
func GrantVIP(userID uint, purchasedMonths int) error {
	user, err := database.GetUserByID(userID)
	if err != nil {
		return err
	}

	now := time.Now()
	expiry := ComputeNewExpiry(user.VIPExpiresAt, user.HasActiveVIP(now), purchasedMonths, now)

	if err := database.UpdateUserVIP(userID, true, expiry); err != nil {
		return err
	}

	if expiry == nil {
		logging.Infof("Granted lifetime VIP to user %d", userID)
	} else {
		logging.Infof("Granted VIP to user %d until %s", userID, expiry.Format(time.RFC3339))
	}
	return nil
}
