package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/config"
	"github.com/tathang/foodcourt/internal/httpx"
	"github.com/tathang/foodcourt/internal/memory"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/payos"
)

const testSecret = "test-secret"

type apiFixture struct {
	store   *memory.Store
	server  *httptest.Server
	gateway *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedProduct(catalog.Product{ID: "espresso", CategoryID: "drinks", Name: "Espresso", PriceCents: 2500, Stock: 10})
	store.SeedProduct(catalog.Product{ID: "bagel", CategoryID: "bakery", Name: "Bagel", PriceCents: 500, Stock: 10})

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"checkoutUrl": "https://pay.example/checkout/abc"},
		})
	}))
	t.Cleanup(gateway.Close)

	log := zap.NewNop()
	billSvc := billing.NewService(store, log, billing.Options{ServiceName: "test"})
	orderSvc := orders.NewService(store, log, orders.Options{ServiceName: "test", RestoreStockOnCancel: true})
	gatewayClient := payos.NewClient(config.PayOS{
		APIURL:      gateway.URL,
		ClientID:    "cid",
		APIKey:      "key",
		ChecksumKey: "checksum",
		Timeout:     time.Second,
	}, "https://shop.example", billSvc, store, log)
	authSvc := auth.NewService(store.Users(), store.Tokens(), &nopSender{}, log, auth.Options{
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
		OTPTTL:    5 * time.Minute,
	})

	srv := httptest.NewServer(httpx.NewRouter(httpx.Deps{
		Catalog:   store,
		Orders:    orderSvc,
		Billing:   billSvc,
		Gateway:   gatewayClient,
		Auth:      authSvc,
		JWTSecret: testSecret,
		Log:       log,
	}))
	t.Cleanup(srv.Close)

	return &apiFixture{store: store, server: srv, gateway: gateway}
}

type nopSender struct{}

func (nopSender) Send(_, _, _ string) error { return nil }

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(res.Body)
	return res, out.Bytes()
}

func customerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, userID, auth.RoleCustomer, time.Hour)
	require.NoError(t, err)
	return token
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	res, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMenuIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	res, body := f.do(t, http.MethodGet, "/api/menu", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var products []catalog.Product
	require.NoError(t, json.Unmarshal(body, &products))
	assert.Len(t, products, 2)
}

func TestOrdersRequireAuth(t *testing.T) {
	f := newAPIFixture(t)
	res, _ := f.do(t, http.MethodPost, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := customerToken(t, "alice")

	res, body := f.do(t, http.MethodPost, "/api/orders", token, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created.Order.ID
	require.NotEmpty(t, orderID)

	res, body = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/items", token,
		map[string]any{"product_id": "espresso", "quantity": 2})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var updated struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, int64(5000), updated.Order.TotalCents)

	res, _ = f.do(t, http.MethodPatch, "/api/orders/"+orderID+"/items/espresso", token,
		map[string]any{"quantity": 1})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", token,
		map[string]any{"method": "CASH"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var bill billing.Bill
	require.NoError(t, json.Unmarshal(body, &bill))
	assert.Equal(t, billing.StatusCompleted, bill.Status)
	assert.Equal(t, int64(2500), bill.AmountCents)

	res, body = f.do(t, http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, orders.StatusPaid, got.Order.Status)

	// paid orders are no longer editable
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/items", token,
		map[string]any{"product_id": "bagel", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestOwnershipOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	alice := customerToken(t, "alice")
	mallory := customerToken(t, "mallory")

	res, body := f.do(t, http.MethodPost, "/api/orders", alice, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	res, _ = f.do(t, http.MethodGet, "/api/orders/"+created.Order.ID, mallory, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestPayOSFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := customerToken(t, "alice")

	res, body := f.do(t, http.MethodPost, "/api/orders", token, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created.Order.ID

	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/items", token,
		map[string]any{"product_id": "bagel", "quantity": 2})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", token,
		map[string]any{"method": "PAYOS"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var link map[string]string
	require.NoError(t, json.Unmarshal(body, &link))
	assert.Equal(t, "https://pay.example/checkout/abc", link["checkout_url"])

	bill, err := f.store.ByOrder(context.Background(), orderID)
	require.NoError(t, err)

	// webhook settles the bill; response always acks
	res, body = f.do(t, http.MethodPost, "/api/customer/payos/webhook", "",
		map[string]any{"data": map[string]any{"orderCode": bill.GatewayOrderCode, "status": "PAID"}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(body))

	res, body = f.do(t, http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, orders.StatusPaid, got.Order.Status)
}

func TestWebhookAlwaysAcks(t *testing.T) {
	f := newAPIFixture(t)

	res, body := f.do(t, http.MethodPost, "/api/customer/payos/webhook", "",
		map[string]any{"data": map[string]any{"orderCode": 424242, "status": "PAID"}})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(body))
}

func TestAdminStatusUpdateGuarded(t *testing.T) {
	f := newAPIFixture(t)
	customer := customerToken(t, "alice")
	admin, err := auth.IssueToken(testSecret, "root", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	res, body := f.do(t, http.MethodPost, "/api/orders", customer, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created.Order.ID

	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/items", customer,
		map[string]any{"product_id": "espresso", "quantity": 1})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", customer,
		map[string]any{"method": "MOMO"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	// customers cannot touch the admin route
	res, _ = f.do(t, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", customer,
		map[string]any{"status": "DELIVERING"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = f.do(t, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", admin,
		map[string]any{"status": "DELIVERING"})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// illegal transition maps to 400
	res, _ = f.do(t, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", admin,
		map[string]any{"status": "PENDING"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAuthEndpointsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	res, _ := f.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]any{"username": "alice", "email": "alice@example.com", "password": "hunter2"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	// duplicate registration conflicts
	res, _ = f.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]any{"username": "alice", "email": "alice@example.com", "password": "hunter2"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, body := f.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]any{"username": "alice", "password": "hunter2"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	assert.NotEmpty(t, login.Token)

	res, _ = f.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]any{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// the fresh token works against protected routes
	res, _ = f.do(t, http.MethodPost, "/api/orders", login.Token, nil)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	token := customerToken(t, "alice")

	res, _ := f.do(t, http.MethodGet, "/api/orders/no-such-order", token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = f.do(t, http.MethodGet, "/api/products/no-such-product", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body := f.do(t, http.MethodPost, "/api/orders", token, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	// paying an empty order
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/pay", token,
		map[string]any{"method": "CASH"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// unknown payment method
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/pay", token,
		map[string]any{"method": "WIRE"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// insufficient stock
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/items", token,
		map[string]any{"product_id": "espresso", "quantity": 999})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// bill lookup before any bill exists
	res, _ = f.do(t, http.MethodGet, "/api/orders/"+created.Order.ID+"/bill", token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPaymentCancelRedirect(t *testing.T) {
	f := newAPIFixture(t)
	token := customerToken(t, "alice")

	res, body := f.do(t, http.MethodPost, "/api/orders", token, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created struct {
		Order orders.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created.Order.ID

	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/items", token,
		map[string]any{"product_id": "bagel", "quantity": 1})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = f.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", token,
		map[string]any{"method": "PAYOS"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = f.do(t, http.MethodGet, "/api/payment/cancel?orderId="+orderID, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var bill billing.Bill
	require.NoError(t, json.Unmarshal(body, &bill))
	assert.Equal(t, billing.StatusFailed, bill.Status)
}
