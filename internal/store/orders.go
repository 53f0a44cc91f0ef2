package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (user_id, status, total, payment_method, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, status, total, payment_method, notes, created_at, updated_at
`

// CreateOrderParams materialises a checkout into an order record.
type CreateOrderParams struct {
	UserID        pgtype.UUID
	Status        OrderStatus
	Total         int64
	PaymentMethod pgtype.Text
	Notes         pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Status, arg.Total, arg.PaymentMethod, arg.Notes)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, name, qty, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, name, qty, unit_price, total_price
`

// CreateOrderItemParams records one order line; TotalPrice must equal
// UnitPrice * Qty.
type CreateOrderItemParams struct {
	OrderID    pgtype.UUID
	ProductID  pgtype.UUID
	Name       string
	Qty        int32
	UnitPrice  int64
	TotalPrice int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.Name, arg.Qty, arg.UnitPrice, arg.TotalPrice)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPrice, &it.TotalPrice)
	return it, err
}

const getOrderByID = `
SELECT id, user_id, status, total, payment_method, notes, created_at, updated_at
FROM orders WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByID, id)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getOrderByIDForUser = `
SELECT id, user_id, status, total, payment_method, notes, created_at, updated_at
FROM orders WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetOrderByIDForUser(ctx context.Context, id, userID pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByIDForUser, id, userID)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listOrdersByUser = `
SELECT id, user_id, status, total, payment_method, notes, created_at, updated_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListOrdersByUserParams pages through a customer's orders.
type ListOrdersByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrders = `
SELECT id, user_id, status, total, payment_method, notes, created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListOrdersParams pages through all orders, optionally filtered by status.
type ListOrdersParams struct {
	Status *string
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrderItems = `
SELECT id, order_id, product_id, name, qty, unit_price, total_price
FROM order_items WHERE order_id = $1 ORDER BY id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
`

// UpdateOrderStatusParams moves an order to a new lifecycle state.
type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error {
	_, err := q.db.Exec(ctx, updateOrderStatus, arg.ID, arg.Status)
	return err
}

func scanOrders(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Order, error) {
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
