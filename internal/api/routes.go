package api

import (
	"vip-payment-api/internal/middleware"
	"vip-payment-api/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	// Wire the reconciliation engine with both production gateways
	PaymentEngine = services.NewPaymentService()

	// API route group
	api := r.Group("/api")
	{
		payment := api.Group("/payment")
		{
			// Public surface
			payment.GET("/pricing", GetPricing)

			// Gateway callbacks (no auth, the providers call these)
			payment.POST("/callback", MomoCallbackHandler)
			payment.POST("/zalopay-callback", ZaloPayCallbackHandler)

			// Purchase initiation and history
			payment.POST("/create", middleware.RequireAuth(), CreateMomoPayment)
			payment.POST("/create-zalopay", middleware.RequireAuth(), CreateZaloPayPayment)
			payment.GET("/history", middleware.RequireAuth(), GetTransactionHistory)

			// Status polling
			payment.GET("/status/:orderId", middleware.OptionalAuth(), CheckMomoStatus)
			payment.GET("/check-zalopay-status/:app_trans_id", middleware.RequireAuth(), CheckZaloPayStatus)

			// Operational overrides
			payment.POST("/manual-complete/:orderId", middleware.RequirePermission("transactions:manage"), ManualCompleteHandler)
			payment.POST("/repair-orphan/:orderId", middleware.RequirePermission("transactions:manage"), RepairOrphanHandler)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "vip-payment-api",
		})
	})
}
