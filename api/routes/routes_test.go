package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/handlers"
	"github.com/metagameshop/shop-backend/internal/repositories/memory"
	"github.com/metagameshop/shop-backend/internal/services"
	"github.com/metagameshop/shop-backend/pkg/telegram"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "s3cret-admin-key"

type testServer struct {
	router     *gin.Engine
	gateway    *telegram.MockGateway
	dispatcher *services.NotificationDispatcher
}

func newTestServer(t *testing.T, basePath string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{BasePath: basePath, AllowedOrigins: []string{"*"}},
		Auth:   config.AuthConfig{AdminAPIKey: testAdminKey},
	}

	store := memory.NewStore()
	gateway := telegram.NewMockGateway()
	dispatcher := services.NewNotificationDispatcher(gateway, time.Second)

	paymentService := services.NewPaymentService(store, store.Balances(), store.Payments(), services.RoleAuthorizer{}, decimal.Zero)
	purchaseService := services.NewPurchaseService(store, store.Balances(), store.Purchases(), dispatcher, decimal.Zero)
	orderService := services.NewOrderService(store.Purchases())

	router := SetupRouter(cfg, HandlerDependencies{
		PaymentHandler:  handlers.NewPaymentHandler(paymentService),
		AdminHandler:    handlers.NewAdminHandler(paymentService),
		PurchaseHandler: handlers.NewPurchaseHandler(purchaseService),
		OrderHandler:    handlers.NewOrderHandler(orderService),
	})
	return &testServer{router: router, gateway: gateway, dispatcher: dispatcher}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}

func field(body map[string]interface{}, path ...string) interface{} {
	var cur interface{} = body
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	status, body := s.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestTopUpApproveAndPurchase(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, http.MethodPost, "/payments/create",
		`{"userId":"u1","userEmail":"nadia@example.com","amount":1000,"transactionId":"C1234567","senderNumber":"01711111111"}`, false)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, float64(1000), field(body, "balance", "pendingBalance"))
	paymentID := field(body, "payment", "id").(string)

	status, body = s.do(t, http.MethodGet, "/payments/admin/pending", "", true)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["payments"], 1)

	status, body = s.do(t, http.MethodPut, "/admin/approve-payment/"+paymentID, "", true)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "approved", field(body, "payment", "status"))
	assert.Equal(t, float64(1000), field(body, "balance", "availableBalance"))
	assert.Equal(t, float64(0), field(body, "balance", "pendingBalance"))

	status, _ = s.do(t, http.MethodPut, "/admin/approve-payment/"+paymentID, "", true)
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodPost, "/purchases",
		`{"userId":"u1","productName":"Weekly Pass","unitPrice":300,"totalAmount":300,"playerId":"88123"}`, false)
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEmpty(t, body["orderId"])
	assert.Equal(t, float64(1000), body["previousBalance"])
	assert.Equal(t, float64(700), body["newBalance"])
	assert.Equal(t, "completed", field(body, "purchase", "status"))

	status, body = s.do(t, http.MethodGet, "/payments/balance/u1", "", false)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(700), field(body, "balance", "availableBalance"))
	assert.Equal(t, float64(300), field(body, "balance", "totalSpent"))

	status, body = s.do(t, http.MethodGet, "/orders/user/u1?page=1&limit=5", "", false)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 1)
	assert.Equal(t, float64(1), field(body, "pagination", "total"))

	status, body = s.do(t, http.MethodGet, "/orders/user/u1/stats", "", false)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(300), field(body, "stats", "totalSpent"))

	s.dispatcher.Close()
	messages := s.gateway.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Weekly Pass")
}

func TestPurchaseWithoutFunds(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, http.MethodPost, "/purchases",
		`{"userId":"u2","productName":"Elite Pass","unitPrice":500,"playerId":"1"}`, false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "insufficient balance")

	status, body = s.do(t, http.MethodGet, "/orders/user/u2", "", false)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 0)

	status, body = s.do(t, http.MethodGet, "/orders/user/u2?page=9223372036854775807&limit=100", "", false)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 0)
}

func TestBalanceReadCreatesNoRecord(t *testing.T) {
	s := newTestServer(t, "")

	for _, id := range []string{"ghost-1", "ghost-2", "ghost-3"} {
		status, body := s.do(t, http.MethodGet, "/payments/balance/"+id+"?email="+id+"@example.com", "", false)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, id, field(body, "balance", "userId"))
		assert.Equal(t, float64(0), field(body, "balance", "availableBalance"))
	}

	status, body := s.do(t, http.MethodGet, "/admin/users", "", true)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	status, body = s.do(t, http.MethodGet, "/admin/stats", "", true)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), field(body, "stats", "users"))
}

func TestDuplicateTransactionID(t *testing.T) {
	s := newTestServer(t, "")
	payload := `{"userId":"u1","amount":500,"transactionId":"%s","senderNumber":"01711111111"}`

	status, _ := s.do(t, http.MethodPost, "/payments/create", fmt.Sprintf(payload, "TXN12345"), false)
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/payments/create", fmt.Sprintf(payload, "txn12345"), false)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
}

func TestAdminRoutesRequireKey(t *testing.T) {
	s := newTestServer(t, "")

	for _, path := range []string{"/admin/users", "/admin/stats", "/admin/payments", "/payments/admin/pending"} {
		status, body := s.do(t, http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, false, body["success"], path)

		status, _ = s.do(t, http.MethodGet, path, "", true)
		assert.Equal(t, http.StatusOK, status, path)
	}

	status, _ := s.do(t, http.MethodPut, "/admin/approve-payment/650000000000000000000000", "", false)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBasePath(t *testing.T) {
	s := newTestServer(t, "/api")

	status, _ := s.do(t, http.MethodGet, "/api/payments/balance/u1", "", false)
	assert.Equal(t, http.StatusOK, status)

	req, _ := http.NewRequest(http.MethodGet, "/payments/balance/u1", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
