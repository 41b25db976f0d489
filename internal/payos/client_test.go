package payos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/config"
	"github.com/tathang/foodcourt/internal/memory"
	"github.com/tathang/foodcourt/internal/orders"
)

func fixedOrderCode(t *testing.T, code int64) {
	t.Helper()
	prev := orderCode
	orderCode = func() int64 { return code }
	t.Cleanup(func() { orderCode = prev })
}

func seedOrder(t *testing.T, store *memory.Store) *orders.Order {
	t.Helper()
	ctx := context.Background()
	store.SeedProduct(catalog.Product{ID: "espresso", Name: "Espresso", PriceCents: 2500, Stock: 10})
	store.SeedProduct(catalog.Product{ID: "bagel", Name: "Bagel", PriceCents: 500, Stock: 10})

	o := &orders.Order{ID: "o1", UserID: "alice", Status: orders.StatusPending}
	require.NoError(t, store.Create(ctx, o))
	_, err := store.AddItem(ctx, o.ID, "espresso", 1)
	require.NoError(t, err)
	o, err = store.AddItem(ctx, o.ID, "bagel", 1)
	require.NoError(t, err)
	return o
}

func newGatewayClient(store *memory.Store, apiURL string) *Client {
	bills := billing.NewService(store, zap.NewNop(), billing.Options{})
	cfg := config.PayOS{
		APIURL:      apiURL,
		ClientID:    "client-1",
		APIKey:      "key-1",
		ChecksumKey: "checksum-1",
		Timeout:     2 * time.Second,
	}
	return NewClient(cfg, "https://shop.example", bills, store, zap.NewNop())
}

func TestCreatePaymentLink(t *testing.T) {
	fixedOrderCode(t, 1756700000000)
	store := memory.NewStore()
	o := seedOrder(t, store)

	var calls int
	var got linkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "client-1", r.Header.Get("x-client-id"))
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"checkoutUrl": "https://pay.example/checkout/abc"},
		})
	}))
	defer srv.Close()

	c := newGatewayClient(store, srv.URL)
	url, err := c.CreatePaymentLink(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout/abc", url)
	assert.Equal(t, 1, calls)

	assert.Equal(t, int64(1756700000000), got.OrderCode)
	assert.Equal(t, int64(3000), got.Amount)
	assert.Equal(t, "Payment for order o1", got.Description)
	assert.Equal(t, "https://shop.example/payment/success?orderId=o1", got.ReturnURL)
	assert.Equal(t, "https://shop.example/payment/cancel?orderId=o1", got.CancelURL)
	assert.Equal(t,
		Signature("checksum-1", 3000, got.CancelURL, got.Description, 1756700000000, got.ReturnURL),
		got.Signature)
	require.Len(t, got.Items, 2)
	assert.Equal(t, item{Name: "Espresso", Quantity: 1, Price: 2500}, got.Items[0])
	assert.Equal(t, item{Name: "Bagel", Quantity: 1, Price: 500}, got.Items[1])

	// the pending bill carries the gateway correlation
	bill, err := store.PendingGatewayBill(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1756700000000), bill.GatewayOrderCode)
	assert.Equal(t, url, bill.CheckoutURL)
	assert.Equal(t, int64(3000), bill.AmountCents)
}

func TestCreatePaymentLinkReusesPendingBill(t *testing.T) {
	fixedOrderCode(t, 111)
	store := memory.NewStore()
	o := seedOrder(t, store)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"checkoutUrl": "https://pay.example/checkout/first"},
		})
	}))
	defer srv.Close()

	c := newGatewayClient(store, srv.URL)
	first, err := c.CreatePaymentLink(context.Background(), o.ID)
	require.NoError(t, err)

	second, err := c.CreatePaymentLink(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second call must not hit the gateway")
}

func TestCreatePaymentLinkRejectsEmptyOrder(t *testing.T) {
	store := memory.NewStore()
	o := &orders.Order{ID: "empty", UserID: "alice", Status: orders.StatusPending}
	require.NoError(t, store.Create(context.Background(), o))

	c := newGatewayClient(store, "http://unused.invalid")
	_, err := c.CreatePaymentLink(context.Background(), o.ID)
	assert.ErrorIs(t, err, orders.ErrEmpty)
}

func TestCreatePaymentLinkRejectsSettledOrder(t *testing.T) {
	store := memory.NewStore()
	o := seedOrder(t, store)
	_, err := store.UpdateStatus(context.Background(), o.ID, orders.StatusPaid)
	require.NoError(t, err)

	c := newGatewayClient(store, "http://unused.invalid")
	_, err = c.CreatePaymentLink(context.Background(), o.ID)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestCreatePaymentLinkGatewayFailure(t *testing.T) {
	fixedOrderCode(t, 222)
	store := memory.NewStore()
	o := seedOrder(t, store)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newGatewayClient(store, srv.URL)
	_, err := c.CreatePaymentLink(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrGateway)

	// no bill is recorded for a failed link request
	_, err = store.ByOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestCreatePaymentLinkMissingCheckoutURL(t *testing.T) {
	fixedOrderCode(t, 333)
	store := memory.NewStore()
	o := seedOrder(t, store)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{}})
	}))
	defer srv.Close()

	c := newGatewayClient(store, srv.URL)
	_, err := c.CreatePaymentLink(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrGateway)
}
