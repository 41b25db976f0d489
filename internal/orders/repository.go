package orders

import "context"

// Repository owns every mutation of the Order aggregate. Implementations
// must make each mutating call one atomic unit: lock the order and product
// rows, validate stock and status, apply the change, and recompute the total
// inside a single transaction, so concurrent requests can never drive stock
// negative or desync the stored total.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	ByID(ctx context.Context, id string) (*Order, error)
	ByUser(ctx context.Context, userID string) ([]Order, error)
	Items(ctx context.Context, orderID string) ([]OrderItem, error)

	// AddItem debits product stock by qty. If the product is already on the
	// order it merges into the existing line, refreshing the price snapshot.
	AddItem(ctx context.Context, orderID, productID string, qty int) (*Order, error)

	// UpdateItemQty applies delta = qty - current; a negative delta credits
	// stock back and always succeeds stock-wise.
	UpdateItemQty(ctx context.Context, orderID, productID string, qty int) (*Order, error)

	// RemoveItem credits the line's full quantity back to stock and deletes it.
	RemoveItem(ctx context.Context, orderID, productID string) (*Order, error)

	// UpdateStatus moves the order along the documented transition map.
	UpdateStatus(ctx context.Context, orderID string, to Status) (*Order, error)

	// Cancel marks the order CANCELLED from any non-terminal state. When
	// restoreStock is set, every item quantity is credited back; the restocked
	// items are returned either way for event publication.
	Cancel(ctx context.Context, orderID string, restoreStock bool) (*Order, []OrderItem, error)

	PromotionByID(ctx context.Context, id string) (*Promotion, error)
}
