package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/internal/services"
	"vip-payment-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// stubGateway scripts callback verification for handler tests
type stubGateway struct {
	method      string
	callback    *services.CallbackResult
	callbackErr error
}

func (s *stubGateway) Method() string { return s.method }

func (s *stubGateway) CreateOrder(ctx context.Context, userID uint, pkg *models.VIPPackage, transactionID uint) (*services.CreateOrderResult, error) {
	return nil, services.ErrGatewayUnavailable
}

func (s *stubGateway) VerifyCallback(payload []byte) (*services.CallbackResult, error) {
	return s.callback, s.callbackErr
}

func (s *stubGateway) QueryStatus(ctx context.Context, orderID, requestID string) (*services.GatewayResult, error) {
	return nil, services.ErrGatewayUnavailable
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	require.NoError(t, config.InitConfig())
	logging.InitLogging()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	database.DB = db
	database.RedisClient = nil

	r := gin.New()
	SetupRoutes(r)
	return r
}

func useGateways(gateways ...services.Gateway) {
	PaymentEngine = services.NewPaymentServiceWith(gateways...)
}

func postCallback(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody fails the test unless the response is well-formed JSON
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "acknowledgement must be well-formed JSON")
	return body
}

func attachedMomoTransaction(t *testing.T, orderID string) *models.Transaction {
	t.Helper()
	user := &models.User{Username: "buyer", Email: "b@example.com"}
	require.NoError(t, database.DB.Create(user).Error)
	tx, err := database.CreateTransaction(user.ID, 120000, 3, models.MethodMomo)
	require.NoError(t, err)
	require.NoError(t, database.AttachMomoOrder(tx.ID, orderID, "REQ_1700000000000"))
	return tx
}

func successResult(orderID string) *services.CallbackResult {
	return &services.CallbackResult{
		Authentic: true,
		Result: services.GatewayResult{
			Outcome: services.OutcomeSuccess,
			OrderID: orderID,
			TransID: "987654",
		},
	}
}

func TestMomoCallbackAckShapes(t *testing.T) {
	r := setupRouter(t)

	t.Run("bad signature", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodMomo, callback: &services.CallbackResult{Authentic: false}})

		w := postCallback(r, "/api/payment/callback")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])
	})

	t.Run("unknown order", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodMomo, callback: successResult("VIP_404_1700000000000")})

		w := postCallback(r, "/api/payment/callback")
		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
	})

	t.Run("internal error", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodMomo, callbackErr: fmt.Errorf("unreadable payload")})

		w := postCallback(r, "/api/payment/callback")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])
	})

	t.Run("success", func(t *testing.T) {
		tx := attachedMomoTransaction(t, "VIP_1_1700000000000")
		useGateways(&stubGateway{method: models.MethodMomo, callback: successResult("VIP_1_1700000000000")})

		w := postCallback(r, "/api/payment/callback")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])

		got, err := database.GetTransactionByID(tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})
}

// ZaloPay acknowledges every outcome with HTTP 200 and a return_code in the
// body; only return_code 1 stops its redelivery.
func TestZaloPayCallbackAckShapes(t *testing.T) {
	r := setupRouter(t)

	t.Run("bad mac", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodZaloPay, callback: &services.CallbackResult{Authentic: false}})

		w := postCallback(r, "/api/payment/zalopay-callback")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(0), body["return_code"])
		assert.Equal(t, "mac not equal", body["return_message"])
	})

	t.Run("unknown order", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodZaloPay, callback: &services.CallbackResult{
			Authentic: true,
			Result:    services.GatewayResult{Outcome: services.OutcomeSuccess, OrderID: "240115_999999", TransID: "1"},
		}})

		w := postCallback(r, "/api/payment/zalopay-callback")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(0), body["return_code"])
	})

	t.Run("internal error", func(t *testing.T) {
		useGateways(&stubGateway{method: models.MethodZaloPay, callbackErr: fmt.Errorf("unreadable payload")})

		w := postCallback(r, "/api/payment/zalopay-callback")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(0), body["return_code"])
		assert.NotEmpty(t, body["return_message"])
	})

	t.Run("success", func(t *testing.T) {
		user := &models.User{Username: "zbuyer", Email: "z@example.com"}
		require.NoError(t, database.DB.Create(user).Error)
		tx, err := database.CreateTransaction(user.ID, 120000, 3, models.MethodZaloPay)
		require.NoError(t, err)
		require.NoError(t, database.AttachZaloPayOrder(tx.ID, "240115_482913", "tok"))

		useGateways(&stubGateway{method: models.MethodZaloPay, callback: &services.CallbackResult{
			Authentic: true,
			Result:    services.GatewayResult{Outcome: services.OutcomeSuccess, OrderID: "240115_482913", TransID: "555"},
		}})

		w := postCallback(r, "/api/payment/zalopay-callback")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["return_code"])
		assert.Equal(t, "success", body["return_message"])

		got, err := database.GetTransactionByID(tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, "555", got.ZaloZpTransID)
	})
}
