package api

import (
	"errors"
	"io"
	"net/http"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/middleware"
	"vip-payment-api/internal/models"
	"vip-payment-api/internal/response"
	"vip-payment-api/internal/services"
	"vip-payment-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PaymentEngine is the reconciliation engine used by the handlers.
// SetupRoutes wires the production engine; tests may swap it.
var PaymentEngine *services.PaymentService

// PricingEntry is one purchasable package in the public pricing list
type PricingEntry struct {
	Duration      int     `json:"duration"`
	Price         float64 `json:"price"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	DiscountLabel string  `json:"discount_label,omitempty"`
	IsFeatured    bool    `json:"is_featured"`
}

// GetPricing lists the active VIP packages
// GET /api/payment/pricing
func GetPricing(c *gin.Context) {
	packages, err := database.GetActiveVIPPackages()
	if err != nil {
		logging.Errorf("Failed to load pricing: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load pricing")
		return
	}

	pricing := make([]PricingEntry, 0, len(packages))
	for _, pkg := range packages {
		pricing = append(pricing, PricingEntry{
			Duration:      pkg.DurationMonths,
			Price:         pkg.Price,
			Title:         pkg.Title,
			Description:   pkg.Description,
			DiscountLabel: pkg.DiscountLabel,
			IsFeatured:    pkg.IsFeatured,
		})
	}

	response.SuccessJSON(c, gin.H{"pricing": pricing})
}

// CreatePaymentRequest is the purchase initiation body
type CreatePaymentRequest struct {
	DurationMonths *int `json:"duration_months" binding:"required"`
}

// CreateMomoPayment starts a MoMo purchase for the authenticated user
// POST /api/payment/create
func CreateMomoPayment(c *gin.Context) {
	initiatePayment(c, models.MethodMomo)
}

// CreateZaloPayPayment starts a ZaloPay purchase for the authenticated user
// POST /api/payment/create-zalopay
func CreateZaloPayPayment(c *gin.Context) {
	initiatePayment(c, models.MethodZaloPay)
}

func initiatePayment(c *gin.Context, method string) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "duration_months is required")
		return
	}

	result, err := PaymentEngine.Initiate(c.Request.Context(), middleware.CallerID(c), *req.DurationMonths, method)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDuration):
			response.ErrorJSON(c, http.StatusBadRequest, "No package matches the requested duration")
		case errors.Is(err, services.ErrPackageInactive):
			response.ErrorJSON(c, http.StatusBadRequest, "Package is not available")
		case errors.Is(err, services.ErrGatewayRejected):
			response.ErrorJSON(c, http.StatusBadGateway, err.Error())
		case errors.Is(err, services.ErrGatewayUnavailable):
			response.ErrorJSON(c, http.StatusServiceUnavailable, "Payment gateway unavailable, please retry")
		default:
			logging.Errorf("Payment creation error: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Payment creation failed")
		}
		return
	}

	response.SuccessJSON(c, result)
}

// MomoCallbackHandler processes the MoMo IPN.
// POST /api/payment/callback
//
// A bad signature is rejected with a negative acknowledgement and no state
// change; internal errors still answer with a well-formed envelope so MoMo
// can retry the notification.
func MomoCallbackHandler(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Unreadable payload")
		return
	}

	result, err := PaymentEngine.HandleCallback(c.Request.Context(), models.MethodMomo, payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSignatureInvalid):
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid signature")
		case errors.Is(err, services.ErrTransactionNotFound):
			response.ErrorJSON(c, http.StatusNotFound, "Transaction not found")
		default:
			logging.Errorf("MoMo callback processing error: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Callback processing failed")
		}
		return
	}

	logging.Infof("MoMo callback processed for order %s: %s", result.OrderID, result.Outcome)
	response.SuccessJSON(c, nil)
}

// ZaloPayCallbackHandler processes the ZaloPay IPN.
// POST /api/payment/zalopay-callback
//
// ZaloPay expects HTTP 200 with a return_code in the body: 1 acknowledges,
// anything else makes it retry. Internal errors therefore answer 200 with
// return_code 0 instead of an HTTP error status.
func ZaloPayCallbackHandler(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"return_code": 0, "return_message": "unreadable payload"})
		return
	}

	result, err := PaymentEngine.HandleCallback(c.Request.Context(), models.MethodZaloPay, payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSignatureInvalid):
			c.JSON(http.StatusOK, gin.H{"return_code": 0, "return_message": "mac not equal"})
		case errors.Is(err, services.ErrTransactionNotFound):
			c.JSON(http.StatusOK, gin.H{"return_code": 0, "return_message": "order not found"})
		default:
			logging.Errorf("ZaloPay callback processing error: %v", err)
			c.JSON(http.StatusOK, gin.H{"return_code": 0, "return_message": "internal error"})
		}
		return
	}

	logging.Infof("ZaloPay callback processed for order %s: %s", result.OrderID, result.Outcome)
	c.JSON(http.StatusOK, gin.H{"return_code": 1, "return_message": "success"})
}

// CheckMomoStatus polls a MoMo transaction's state
// GET /api/payment/status/:orderId
func CheckMomoStatus(c *gin.Context) {
	checkStatus(c, models.MethodMomo, c.Param("orderId"))
}

// CheckZaloPayStatus polls a ZaloPay transaction's state
// GET /api/payment/check-zalopay-status/:app_trans_id
func CheckZaloPayStatus(c *gin.Context) {
	checkStatus(c, models.MethodZaloPay, c.Param("app_trans_id"))
}

func checkStatus(c *gin.Context, method, orderID string) {
	result, err := PaymentEngine.CheckStatus(c.Request.Context(), method, orderID, middleware.CallerID(c), middleware.IsAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			response.ErrorJSON(c, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, services.ErrAccessDenied):
			response.ErrorJSON(c, http.StatusForbidden, "Access denied")
		default:
			logging.Errorf("Status check error for order %s: %v", orderID, err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Status check failed")
		}
		return
	}

	response.SuccessJSON(c, gin.H{"transaction": result})
}

// GetTransactionHistory lists the caller's transactions, newest first
// GET /api/payment/history
func GetTransactionHistory(c *gin.Context) {
	txs, err := database.GetTransactionsByUser(middleware.CallerID(c))
	if err != nil {
		logging.Errorf("Failed to load transaction history: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load history")
		return
	}
	response.SuccessJSON(c, gin.H{"transactions": txs})
}

// ManualCompleteHandler force-completes a stuck transaction
// POST /api/payment/manual-complete/:orderId (transactions:manage)
func ManualCompleteHandler(c *gin.Context) {
	orderID := c.Param("orderId")

	tx, err := PaymentEngine.ManualComplete(orderID)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, "Transaction not found")
			return
		}
		logging.Errorf("Manual complete error for order %s: %v", orderID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Manual complete failed")
		return
	}

	logging.Infof("Manually completed transaction %d (order %s)", tx.ID, orderID)
	response.SuccessJSON(c, gin.H{"transaction": gin.H{
		"id":       tx.ID,
		"order_id": orderID,
		"status":   tx.Status,
	}})
}

// RepairOrphanHandler re-attaches an orphaned reservation to its external
// order and reconciles it
// POST /api/payment/repair-orphan/:orderId (transactions:manage)
func RepairOrphanHandler(c *gin.Context) {
	orderID := c.Param("orderId")

	result, err := PaymentEngine.RepairOrphan(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, "No orphaned transaction found")
			return
		}
		logging.Errorf("Orphan repair error for order %s: %v", orderID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessJSON(c, gin.H{"transaction": result})
}
