package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/orders"
)

// BillRepo implements billing.Repository. The one-bill-per-order invariant
// is held twice: checked under the order row lock and backed by a unique
// index on bills.order_id.
type BillRepo struct{ DB *pgxpool.Pool }

const billColumns = `id, order_id, payment_method, payment_status, amount_cents, COALESCE(gateway_order_code, 0), COALESCE(checkout_url, ''), issued_at`

func (r *BillRepo) CreateBill(ctx context.Context, orderID string, method billing.PaymentMethod) (*billing.Bill, *orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status != orders.StatusPending {
		return nil, nil, orders.ErrInvalidTransition
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bills WHERE order_id=$1)`, orderID).Scan(&exists); err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, billing.ErrDuplicate
	}

	var itemCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id=$1`, orderID).Scan(&itemCount); err != nil {
		return nil, nil, err
	}
	if itemCount == 0 {
		return nil, nil, orders.ErrEmpty
	}

	bill := &billing.Bill{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Method:      method,
		Status:      billing.StatusPending,
		AmountCents: o.TotalCents,
		IssuedAt:    time.Now().UTC(),
	}
	if method.Synchronous() {
		bill.Status = billing.StatusCompleted
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO bills(id, order_id, payment_method, payment_status, amount_cents, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		bill.ID, bill.OrderID, bill.Method, bill.Status, bill.AmountCents, bill.IssuedAt); err != nil {
		return nil, nil, err
	}

	if method.Synchronous() {
		o, err = scanOrder(tx.QueryRow(ctx, `
			UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
			RETURNING `+orderColumns, orderID, orders.StatusPaid))
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return bill, o, nil
}

func (r *BillRepo) CreateGatewayBill(ctx context.Context, orderID string, orderCode, amountCents int64, checkoutURL string) (*billing.Bill, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bills WHERE order_id=$1)`, orderID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, billing.ErrDuplicate
	}

	bill := &billing.Bill{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		Method:           billing.MethodPayOS,
		Status:           billing.StatusPending,
		AmountCents:      amountCents,
		GatewayOrderCode: orderCode,
		CheckoutURL:      checkoutURL,
		IssuedAt:         time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO bills(id, order_id, payment_method, payment_status, amount_cents, gateway_order_code, checkout_url, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		bill.ID, bill.OrderID, bill.Method, bill.Status, bill.AmountCents, bill.GatewayOrderCode, bill.CheckoutURL, bill.IssuedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return bill, nil
}

func (r *BillRepo) ByOrder(ctx context.Context, orderID string) (*billing.Bill, error) {
	return r.scanBill(r.DB.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills WHERE order_id=$1`, orderID))
}

func (r *BillRepo) PendingGatewayBill(ctx context.Context, orderID string) (*billing.Bill, error) {
	return r.scanBill(r.DB.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills WHERE order_id=$1 AND payment_method=$2 AND payment_status=$3`,
		orderID, billing.MethodPayOS, billing.StatusPending))
}

func (r *BillRepo) scanBill(row pgx.Row) (*billing.Bill, error) {
	var b billing.Bill
	err := row.Scan(&b.ID, &b.OrderID, &b.Method, &b.Status, &b.AmountCents, &b.GatewayOrderCode, &b.CheckoutURL, &b.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SettleByOrderCode locks the bill row, then the order row, so a webhook
// racing a cancel resolves in a deterministic order.
func (r *BillRepo) SettleByOrderCode(ctx context.Context, orderCode int64) (*billing.Bill, *orders.Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bill, err := r.scanBill(tx.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills WHERE gateway_order_code=$1 FOR UPDATE`, orderCode))
	if err != nil {
		return nil, nil, false, err
	}

	o, err := lockOrder(ctx, tx, bill.OrderID)
	if err != nil {
		return nil, nil, false, err
	}

	// replay guard: only PENDING bills transition
	if bill.Status != billing.StatusPending {
		if err := tx.Commit(ctx); err != nil {
			return nil, nil, false, err
		}
		return bill, o, false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE bills SET payment_status=$2 WHERE id=$1`, bill.ID, billing.StatusCompleted); err != nil {
		return nil, nil, false, err
	}
	bill.Status = billing.StatusCompleted

	if o.Status == orders.StatusPending {
		o, err = scanOrder(tx.QueryRow(ctx, `
			UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
			RETURNING `+orderColumns, o.ID, orders.StatusPaid))
		if err != nil {
			return nil, nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, err
	}
	return bill, o, true, nil
}

func (r *BillRepo) FailPendingGatewayBill(ctx context.Context, orderID string) (*billing.Bill, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bill, err := r.scanBill(tx.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills WHERE order_id=$1 AND payment_method=$2 AND payment_status=$3 FOR UPDATE`,
		orderID, billing.MethodPayOS, billing.StatusPending))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE bills SET payment_status=$2 WHERE id=$1`, bill.ID, billing.StatusFailed); err != nil {
		return nil, err
	}
	bill.Status = billing.StatusFailed
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return bill, nil
}
