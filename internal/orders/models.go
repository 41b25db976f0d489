package orders

import "time"

type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	PromotionID string    `json:"promotion_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderItem carries a price snapshot taken when the item was added; later
// catalog price changes do not touch existing orders.
type OrderItem struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	PriceCents  int64  `json:"price_cents"`
}

func (it OrderItem) SubtotalCents() int64 { return int64(it.Qty) * it.PriceCents }

// RecomputeTotal derives the order total from its items. The stored
// total_cents column is never trusted independently; every item mutation
// reassigns it from this sum.
func RecomputeTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		if it.Qty <= 0 || it.PriceCents < 0 {
			continue
		}
		total += it.SubtotalCents()
	}
	return total
}

// Promotion discounts are either a percentage or a fixed amount, applied at
// calculation time only.
type Promotion struct {
	ID              string `json:"id"`
	DiscountPercent int64  `json:"discount_percent,omitempty"`
	DiscountCents   int64  `json:"discount_cents,omitempty"`
}

// Discount returns the amount to subtract from subtotal, never more than the
// subtotal itself.
func (p Promotion) Discount(subtotalCents int64) int64 {
	d := p.DiscountCents
	if p.DiscountPercent > 0 {
		d = subtotalCents * p.DiscountPercent / 100
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
