package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: product not found")

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is never deleted, only archived; archived products disappear from
// the menu but stay referenced by historical order items.
type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the read-only catalog lookup. Stock mutation happens inside the
// order repository's transactions, never through this interface.
type Store interface {
	Menu(ctx context.Context) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	ProductByID(ctx context.Context, id string) (*Product, error)
	ProductsByCategory(ctx context.Context, categoryID string) ([]Product, error)
}
