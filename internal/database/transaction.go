package database

import (
	"errors"
	"vip-payment-api/internal/models"

	"gorm.io/gorm"
)

// CreateTransaction inserts a pending row with no provider identifiers yet.
// This is the local reservation half of the two-step order creation.
func CreateTransaction(userID uint, amount float64, durationMonths int, method string) (*models.Transaction, error) {
	tx := &models.Transaction{
		UserID:         userID,
		Amount:         amount,
		DurationMonths: durationMonths,
		PaymentMethod:  method,
		Status:         models.StatusPending,
	}
	if err := DB.Create(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}

// AttachMomoOrder fills the MoMo correlation fields on a pending row.
// Overwriting an already attached pending row is tolerated: the
// reserve-then-attach sequence may be retried after a crash in between.
func AttachMomoOrder(id uint, orderID, requestID string) error {
	return attachProviderIDs(id, map[string]interface{}{
		"momo_order_id":   orderID,
		"momo_request_id": requestID,
	})
}

// AttachZaloPayOrder fills the ZaloPay correlation fields on a pending row.
func AttachZaloPayOrder(id uint, appTransID, zpTransToken string) error {
	return attachProviderIDs(id, map[string]interface{}{
		"zalopay_app_trans_id":   appTransID,
		"zalopay_zp_trans_token": zpTransToken,
	})
}

func attachProviderIDs(id uint, fields map[string]interface{}) error {
	result := DB.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FinalizeTransaction transitions a transaction to a terminal state,
// recording the provider's settlement id in the column matching the
// payment method. The update is conditional on the current status still
// being pending and checks the affected-row count, so of any number of
// concurrent callers (callback, poll, manual) exactly one observes
// applied=true. Callers must treat applied=false as "nothing to do" and
// skip entitlement granting.
func FinalizeTransaction(id uint, status, method, externalTransID string) (applied bool, err error) {
	fields := map[string]interface{}{"status": status}
	if externalTransID != "" {
		if method == models.MethodZaloPay {
			fields["zalopay_zp_trans_id"] = externalTransID
		} else {
			fields["momo_trans_id"] = externalTransID
		}
	}

	result := DB.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetTransactionByID returns a transaction by internal id
func GetTransactionByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := DB.First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByMomoOrderID returns the transaction holding a MoMo order id
func GetTransactionByMomoOrderID(orderID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := DB.Where("momo_order_id = ?", orderID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByZaloAppTransID returns the transaction holding a ZaloPay app_trans_id
func GetTransactionByZaloAppTransID(appTransID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := DB.Where("zalopay_app_trans_id = ?", appTransID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindTransactionByOrderID looks an order id up across both providers.
func FindTransactionByOrderID(orderID string) (*models.Transaction, error) {
	tx, err := GetTransactionByMomoOrderID(orderID)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return GetTransactionByZaloAppTransID(orderID)
}

// GetLatestUnattachedTransaction returns the most recent pending row whose
// provider identifiers were never attached (the orphan-repair target).
func GetLatestUnattachedTransaction() (*models.Transaction, error) {
	var tx models.Transaction
	err := DB.Where("status = ?", models.StatusPending).
		Where("(momo_order_id IS NULL OR momo_order_id = '') AND (zalopay_app_trans_id IS NULL OR zalopay_app_trans_id = '')").
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionsByUser returns a user's transactions, newest first
func GetTransactionsByUser(userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error
	return txs, err
}
