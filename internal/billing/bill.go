package billing

import (
	"context"
	"errors"
	"time"

	"github.com/tathang/foodcourt/internal/orders"
)

type PaymentMethod string

const (
	MethodCash  PaymentMethod = "CASH"
	MethodMomo  PaymentMethod = "MOMO"
	MethodPayOS PaymentMethod = "PAYOS"
)

func ParseMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case MethodCash, MethodMomo, MethodPayOS:
		return PaymentMethod(s), true
	}
	return "", false
}

// Synchronous reports whether settlement is trusted at creation time.
// CASH and MOMO settle immediately; PAYOS waits for the gateway webhook.
func (m PaymentMethod) Synchronous() bool { return m != MethodPayOS }

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
)

var (
	ErrNotFound  = errors.New("billing: bill not found")
	ErrDuplicate = errors.New("billing: order already billed")
)

// Bill is the settlement record for one order. At most one bill ever exists
// per order.
type Bill struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"order_id"`
	Method           PaymentMethod `json:"payment_method"`
	Status           PaymentStatus `json:"payment_status"`
	AmountCents      int64         `json:"amount_cents"`
	GatewayOrderCode int64         `json:"gateway_order_code,omitempty"`
	CheckoutURL      string        `json:"checkout_url,omitempty"`
	IssuedAt         time.Time     `json:"issued_at"`
}

// Repository implementations must keep each mutation atomic across the
// Bill/Order pair: the one-bill-per-order check, the insert, and any order
// status flip are a single transaction serialized on the order row, so a
// webhook racing a user-initiated cancel resolves deterministically.
type Repository interface {
	// CreateBill snapshots the order total into a new bill. The order must be
	// PENDING with at least one item and no existing bill. Synchronous
	// methods settle immediately: bill COMPLETED, order PAID.
	CreateBill(ctx context.Context, orderID string, method PaymentMethod) (*Bill, *orders.Order, error)

	// CreateGatewayBill persists the PENDING PAYOS bill produced by a
	// successful payment-link request.
	CreateGatewayBill(ctx context.Context, orderID string, orderCode, amountCents int64, checkoutURL string) (*Bill, error)

	ByOrder(ctx context.Context, orderID string) (*Bill, error)

	// PendingGatewayBill returns the PENDING PAYOS bill for the order, or
	// ErrNotFound.
	PendingGatewayBill(ctx context.Context, orderID string) (*Bill, error)

	// SettleByOrderCode moves a PENDING bill to COMPLETED and its order to
	// PAID. Replays against an already-COMPLETED bill return changed=false
	// with no state touched.
	SettleByOrderCode(ctx context.Context, orderCode int64) (bill *Bill, o *orders.Order, changed bool, err error)

	// FailPendingGatewayBill marks the order's PENDING PAYOS bill FAILED.
	FailPendingGatewayBill(ctx context.Context, orderID string) (*Bill, error)
}
