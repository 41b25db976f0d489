package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/orders"
)

// OrderRepo implements orders.Repository. Every mutation runs in one
// transaction with the order row locked first and product rows locked per
// item, so concurrent mutations of the same order or product serialize on
// the row locks and stock can never go negative.
type OrderRepo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, status, total_cents, COALESCE(promotion_id::text, ''), COALESCE(notes, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*orders.Order, error) {
	var o orders.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.PromotionID, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *orders.Order) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)`,
		o.ID, o.UserID, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OrderRepo) ByID(ctx context.Context, id string) (*orders.Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
}

func (r *OrderRepo) ByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.PromotionID, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepo) Items(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.qty, oi.price_cents
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// lockOrder fetches the order FOR UPDATE inside tx; all item mutations start
// here so two requests on the same order serialize.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (*orders.Order, error) {
	return scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
}

// recomputeTotal reassigns total_cents from the item rows and returns the
// fresh order. The stored total is never trusted independently.
func recomputeTotal(ctx context.Context, tx pgx.Tx, orderID string) (*orders.Order, error) {
	return scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET
			total_cents = (SELECT COALESCE(SUM(qty * price_cents), 0) FROM order_items WHERE order_id = $1),
			updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, orderID))
}

func (r *OrderRepo) AddItem(ctx context.Context, orderID, productID string, qty int) (*orders.Order, error) {
	if qty <= 0 {
		return nil, orders.ErrInvalidQuantity
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}

	var price int64
	var stock int
	err = tx.QueryRow(ctx, `SELECT price_cents, stock FROM products WHERE id=$1 AND NOT archived FOR UPDATE`, productID).
		Scan(&price, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stock < qty {
		return nil, orders.ErrInsufficientStock
	}

	// merge into the existing line if the product is already on the order;
	// the price snapshot is refreshed to the current catalog price
	var itemID string
	err = tx.QueryRow(ctx, `SELECT id FROM order_items WHERE order_id=$1 AND product_id=$2`, orderID, productID).Scan(&itemID)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx, `UPDATE order_items SET qty = qty + $2, price_cents = $3 WHERE id=$1`,
			itemID, qty, price); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), orderID, productID, qty, price); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`, productID, qty); err != nil {
		return nil, err
	}

	o, err = recomputeTotal(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) UpdateItemQty(ctx context.Context, orderID, productID string, qty int) (*orders.Order, error) {
	if qty <= 0 {
		return nil, orders.ErrInvalidQuantity
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}

	var itemID string
	var current int
	err = tx.QueryRow(ctx, `SELECT id, qty FROM order_items WHERE order_id=$1 AND product_id=$2`, orderID, productID).
		Scan(&itemID, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock); err != nil {
		return nil, err
	}

	// delta may be negative; shrinking a line always succeeds and credits
	// stock back
	delta := qty - current
	if stock < delta {
		return nil, orders.ErrInsufficientStock
	}

	if _, err := tx.Exec(ctx, `UPDATE order_items SET qty = $2 WHERE id=$1`, itemID, qty); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`, productID, delta); err != nil {
		return nil, err
	}

	o, err = recomputeTotal(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) RemoveItem(ctx context.Context, orderID, productID string) (*orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}

	var itemID string
	var qty int
	err = tx.QueryRow(ctx, `SELECT id, qty FROM order_items WHERE order_id=$1 AND product_id=$2`, orderID, productID).
		Scan(&itemID, &qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, qty); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, itemID); err != nil {
		return nil, err
	}

	o, err = recomputeTotal(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, to) {
		return nil, orders.ErrInvalidTransition
	}

	o, err = scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
		RETURNING `+orderColumns, orderID, to))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) Cancel(ctx context.Context, orderID string, restoreStock bool) (*orders.Order, []orders.OrderItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status.Terminal() {
		return nil, nil, orders.ErrInvalidTransition
	}

	rows, err := tx.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.qty, oi.price_cents
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return nil, nil, err
	}
	var items []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Qty, &it.PriceCents); err != nil {
			rows.Close()
			return nil, nil, err
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if restoreStock {
		for _, it := range items {
			if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
				it.ProductID, it.Qty); err != nil {
				return nil, nil, err
			}
		}
	}

	o, err = scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
		RETURNING `+orderColumns, orderID, orders.StatusCancelled))
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (r *OrderRepo) PromotionByID(ctx context.Context, id string) (*orders.Promotion, error) {
	var p orders.Promotion
	err := r.DB.QueryRow(ctx, `
		SELECT id, COALESCE(discount_percent, 0), COALESCE(discount_cents, 0)
		FROM promotions WHERE id=$1`, id).
		Scan(&p.ID, &p.DiscountPercent, &p.DiscountCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
