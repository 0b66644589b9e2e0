package models

// Payment method tags
const (
	MethodMomo    = "momo"
	MethodZaloPay = "zalopay"
)

// Transaction lifecycle states. Transitions are monotonic:
// pending -> completed or pending -> failed, nothing leaves a terminal state.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction is one purchase attempt. A row is created in pending state
// with no provider identifiers (the reservation window), gets the provider
// order identifiers attached once the external order exists, and is
// finalized exactly once by whichever reconciliation path observes the
// gateway's ground truth first.
//
// Provider identifier columns use default:null so unattached rows store
// NULL instead of '' and the unique indexes only bite once populated.
type Transaction struct {
	BaseModel

	UserID         uint    `json:"user_id" gorm:"not null;index"`
	Amount         float64 `json:"amount" gorm:"not null"`
	DurationMonths int     `json:"duration_months" gorm:"not null"` // 0 = lifetime
	PaymentMethod  string  `json:"payment_method" gorm:"not null;size:20;default:'momo';index"`
	Status         string  `json:"status" gorm:"not null;size:20;default:'pending';index"`

	// MoMo correlation fields
	MomoOrderID   string `json:"momo_order_id" gorm:"size:100;uniqueIndex;default:null"`
	MomoRequestID string `json:"momo_request_id" gorm:"size:100;default:null"`
	MomoTransID   string `json:"momo_trans_id" gorm:"size:100;default:null"`

	// ZaloPay correlation fields
	ZaloAppTransID   string `json:"zalopay_app_trans_id" gorm:"column:zalopay_app_trans_id;size:100;uniqueIndex;default:null"`
	ZaloZpTransToken string `json:"zalopay_zp_trans_token" gorm:"column:zalopay_zp_trans_token;size:255;default:null"`
	ZaloZpTransID    string `json:"zalopay_zp_trans_id" gorm:"column:zalopay_zp_trans_id;size:100;default:null"`
}

// TableName specifies the table name
func (Transaction) TableName() string {
	return "transactions"
}

// IsTerminal reports whether the transaction reached a terminal state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// OrderID returns the provider order identifier for the transaction's
// payment method, or "" while the row is still unattached.
func (t *Transaction) OrderID() string {
	if t.PaymentMethod == MethodZaloPay {
		return t.ZaloAppTransID
	}
	return t.MomoOrderID
}
