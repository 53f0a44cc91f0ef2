package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createCart = `
INSERT INTO carts (user_id) VALUES ($1)
RETURNING id, user_id, created_at, updated_at
`

func (q *Queries) CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCartByID = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1
`

func (q *Queries) GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByID, id)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCartByUser = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1
`

func (q *Queries) GetCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByUser, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCartItems = `
SELECT id, cart_id, product_id, qty, unit_price
FROM cart_items WHERE cart_id = $1 ORDER BY id
`

func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const upsertCartItem = `
INSERT INTO cart_items (cart_id, product_id, qty, unit_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, unit_price = EXCLUDED.unit_price
RETURNING id, cart_id, product_id, qty, unit_price
`

// UpsertCartItemParams adds a product to a cart, accumulating quantity.
type UpsertCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	Qty       int32
	UnitPrice int64
}

func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.ProductID, arg.Qty, arg.UnitPrice)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.UnitPrice)
	return it, err
}

const updateCartItemQty = `
UPDATE cart_items SET qty = $3 WHERE cart_id = $1 AND id = $2
RETURNING id, cart_id, product_id, qty, unit_price
`

// UpdateCartItemQtyParams replaces the quantity of one cart line.
type UpdateCartItemQtyParams struct {
	CartID pgtype.UUID
	ItemID pgtype.UUID
	Qty    int32
}

func (q *Queries) UpdateCartItemQty(ctx context.Context, arg UpdateCartItemQtyParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQty, arg.CartID, arg.ItemID, arg.Qty)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.UnitPrice)
	return it, err
}

const deleteCartItem = `
DELETE FROM cart_items WHERE cart_id = $1 AND id = $2
`

func (q *Queries) DeleteCartItem(ctx context.Context, cartID, itemID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItem, cartID, itemID)
	return err
}

const clearCart = `DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) ClearCart(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, cartID)
	return err
}
