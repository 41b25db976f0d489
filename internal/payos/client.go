package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/config"
	"github.com/tathang/foodcourt/internal/orders"
)

var ErrGateway = errors.New("payos: gateway request failed")

// orderCode mints the gateway-side correlation id. Millisecond timestamps
// are unique enough per deployment; collisions would need two link requests
// inside the same millisecond.
var orderCode = func() int64 { return time.Now().UnixMilli() }

type item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type linkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
	Items       []item `json:"items"`
}

type linkResponse struct {
	Data struct {
		CheckoutURL string `json:"checkoutUrl"`
	} `json:"data"`
}

type Client struct {
	cfg     config.PayOS
	baseURL string
	http    *http.Client
	bills   *billing.Service
	orders  orders.Repository
	log     *zap.Logger
}

func NewClient(cfg config.PayOS, baseURL string, bills *billing.Service, repo orders.Repository, log *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		bills:   bills,
		orders:  repo,
		log:     log,
	}
}

// CreatePaymentLink requests a hosted checkout URL for the order. A second
// call while a gateway bill is still PENDING returns the existing URL instead
// of minting a duplicate link.
func (c *Client) CreatePaymentLink(ctx context.Context, orderID string) (string, error) {
	if existing, err := c.bills.PendingGatewayBill(ctx, orderID); err == nil {
		c.log.Warn("gateway bill already pending, reusing checkout url",
			zap.String("order_id", orderID),
			zap.Int64("order_code", existing.GatewayOrderCode))
		return existing.CheckoutURL, nil
	} else if !errors.Is(err, billing.ErrNotFound) {
		return "", err
	}

	o, err := c.orders.ByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status != orders.StatusPending {
		return "", orders.ErrInvalidTransition
	}
	items, err := c.orders.Items(ctx, orderID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", orders.ErrEmpty
	}

	code := orderCode()
	amount := o.TotalCents
	description := fmt.Sprintf("Payment for order %s", orderID)
	returnURL := c.baseURL + "/payment/success?orderId=" + orderID
	cancelURL := c.baseURL + "/payment/cancel?orderId=" + orderID

	req := linkRequest{
		OrderCode:   code,
		Amount:      amount,
		Description: description,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		Signature:   Signature(c.cfg.ChecksumKey, amount, cancelURL, description, code, returnURL),
	}
	for _, it := range items {
		req.Items = append(req.Items, item{Name: it.ProductName, Quantity: it.Qty, Price: it.PriceCents})
	}

	checkoutURL, err := c.submit(ctx, req)
	if err != nil {
		return "", err
	}

	if _, err := c.bills.CreateGatewayBill(ctx, orderID, code, amount, checkoutURL); err != nil {
		return "", err
	}
	return checkoutURL, nil
}

func (c *Client) submit(ctx context.Context, body linkRequest) (string, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-api-key", c.cfg.APIKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrGateway, res.StatusCode)
	}

	var out linkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if out.Data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: no checkout url in response", ErrGateway)
	}
	return out.Data.CheckoutURL, nil
}
