package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tathang/foodcourt/internal/catalog"
)

// CatalogRepo implements catalog.Store: plain read-through queries, no
// transactions. Stock writes go through OrderRepo.
type CatalogRepo struct{ DB *pgxpool.Pool }

const productColumns = `id, category_id, name, COALESCE(description, ''), COALESCE(image_url, ''), price_cents, stock, archived, created_at, updated_at`

func (r *CatalogRepo) Menu(ctx context.Context) ([]catalog.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE NOT archived ORDER BY name`)
}

func (r *CatalogRepo) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) ProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.ImageURL, &p.PriceCents, &p.Stock, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepo) ProductsByCategory(ctx context.Context, categoryID string) ([]catalog.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE category_id=$1 AND NOT archived ORDER BY name`, categoryID)
}

func (r *CatalogRepo) queryProducts(ctx context.Context, sql string, args ...any) ([]catalog.Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.ImageURL, &p.PriceCents, &p.Stock, &p.Archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
