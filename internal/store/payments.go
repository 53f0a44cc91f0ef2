package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, order_ref, gateway, amount, status, provider_payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, order_ref, gateway, amount, status, provider_payload, created_at, updated_at
`

// CreatePaymentParams opens a payment attempt against a gateway. OrderRef is
// the merchant-side transaction reference sent to the provider.
type CreatePaymentParams struct {
	OrderID         pgtype.UUID
	OrderRef        string
	Gateway         string
	Amount          int64
	Status          PaymentStatus
	ProviderPayload []byte
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.OrderRef, arg.Gateway, arg.Amount, arg.Status, arg.ProviderPayload)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.OrderRef, &p.Gateway, &p.Amount, &p.Status, &p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getPaymentByRef = `
SELECT id, order_id, order_ref, gateway, amount, status, provider_payload, created_at, updated_at
FROM payments WHERE order_ref = $1
`

func (q *Queries) GetPaymentByRef(ctx context.Context, orderRef string) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByRef, orderRef)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.OrderRef, &p.Gateway, &p.Amount, &p.Status, &p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getLatestPaymentByOrder = `
SELECT id, order_id, order_ref, gateway, amount, status, provider_payload, created_at, updated_at
FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1
`

func (q *Queries) GetLatestPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error) {
	row := q.db.QueryRow(ctx, getLatestPaymentByOrder, orderID)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.OrderRef, &p.Gateway, &p.Amount, &p.Status, &p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const updatePaymentStatus = `
UPDATE payments
SET status = $2, provider_payload = coalesce($3, provider_payload), updated_at = now()
WHERE order_ref = $1
RETURNING id, order_id, order_ref, gateway, amount, status, provider_payload, created_at, updated_at
`

// UpdatePaymentStatusParams settles or fails a payment by reference. A nil
// ProviderPayload keeps whatever the provider sent last.
type UpdatePaymentStatusParams struct {
	OrderRef        string
	Status          PaymentStatus
	ProviderPayload []byte
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus, arg.OrderRef, arg.Status, arg.ProviderPayload)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.OrderRef, &p.Gateway, &p.Amount, &p.Status, &p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const insertPaymentEvent = `
INSERT INTO payment_events (payment_id, status, payload)
VALUES ($1, $2, $3)
RETURNING id, payment_id, status, payload, created_at
`

// InsertPaymentEventParams appends one entry to a payment's audit trail.
type InsertPaymentEventParams struct {
	PaymentID pgtype.UUID
	Status    PaymentStatus
	Payload   []byte
}

func (q *Queries) InsertPaymentEvent(ctx context.Context, arg InsertPaymentEventParams) (PaymentEvent, error) {
	row := q.db.QueryRow(ctx, insertPaymentEvent, arg.PaymentID, arg.Status, arg.Payload)
	var e PaymentEvent
	err := row.Scan(&e.ID, &e.PaymentID, &e.Status, &e.Payload, &e.CreatedAt)
	return e, err
}

const listPendingPayments = `
SELECT id, order_id, order_ref, gateway, amount, status, provider_payload, created_at, updated_at
FROM payments
WHERE status = 'PENDING' AND created_at < now() - $1::interval
ORDER BY created_at ASC
LIMIT $2
`

// ListPendingPaymentsParams selects stale pending payments for reconciliation.
// MinAge is a Postgres interval string such as "5 minutes".
type ListPendingPaymentsParams struct {
	MinAge string
	Limit  int32
}

func (q *Queries) ListPendingPayments(ctx context.Context, arg ListPendingPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPendingPayments, arg.MinAge, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.OrderRef, &p.Gateway, &p.Amount, &p.Status, &p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
