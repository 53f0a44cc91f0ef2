package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listProducts = `
SELECT id, slug, name, description, image_url, price, active, created_at, updated_at
FROM products
WHERE active = true
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListProductsParams pages through active products.
type ListProductsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countProducts = `SELECT count(*) FROM products WHERE active = true`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}

const getProductByID = `
SELECT id, slug, name, description, image_url, price, active, created_at, updated_at
FROM products WHERE id = $1
`

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductByID, id)
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getProductBySlug = `
SELECT id, slug, name, description, image_url, price, active, created_at, updated_at
FROM products WHERE slug = $1
`

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, getProductBySlug, slug)
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
