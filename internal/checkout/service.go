package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phongthuytaman/backend-store/internal/events"
	"github.com/phongthuytaman/backend-store/internal/store"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrCartNotFound is returned when the user has no cart to check out.
var ErrCartNotFound = errors.New("cart not found")

// Input is the checkout request payload.
type Input struct {
	PaymentMethod string  `json:"paymentMethod" validate:"omitempty,oneof=vnpay zalopay"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

// Line is one materialised order line.
type Line struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Qty       int32  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

// Output describes the created order.
type Output struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Total   int64  `json:"total"`
	Items   []Line `json:"items"`
}

// Service turns a cart into an order awaiting payment. The cart is emptied
// and the order total is fixed inside a single transaction, so the amount a
// gateway later signs can never drift from what the customer saw.
type Service struct {
	Q      *store.Queries
	Pool   *pgxpool.Pool
	Events *events.Bus
}

// Create materialises the user's cart into a PENDING_PAYMENT order.
func (s *Service) Create(ctx context.Context, userID pgtype.UUID, in Input) (Output, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if !userID.Valid {
		return Output{}, errors.New("user is required for checkout")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	cartRow, err := qtx.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, ErrCartNotFound
		}
		return Output{}, err
	}
	items, err := qtx.ListCartItems(ctx, cartRow.ID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	var total int64
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lineTotal := it.UnitPrice * int64(it.Qty)
		total += lineTotal
		lines = append(lines, Line{
			ProductID: store.UUIDString(it.ProductID),
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Total:     lineTotal,
		})
	}

	order, err := qtx.CreateOrder(ctx, store.CreateOrderParams{
		UserID:        userID,
		Status:        store.OrderStatusPENDINGPAYMENT,
		Total:         total,
		PaymentMethod: toNullableText(normaliseMethod(in.PaymentMethod)),
		Notes:         toNullableText(in.Notes),
	})
	if err != nil {
		return Output{}, err
	}
	for i, it := range items {
		product, err := qtx.GetProductByID(ctx, it.ProductID)
		if err != nil {
			return Output{}, fmt.Errorf("load product for order line: %w", err)
		}
		lines[i].Name = product.Name
		if _, err := qtx.CreateOrderItem(ctx, store.CreateOrderItemParams{
			OrderID:    order.ID,
			ProductID:  it.ProductID,
			Name:       product.Name,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			TotalPrice: lines[i].Total,
		}); err != nil {
			return Output{}, err
		}
	}
	if err := qtx.ClearCart(ctx, cartRow.ID); err != nil {
		return Output{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, order.ID, map[string]any{
			"orderId": store.UUIDString(order.ID),
			"userId":  store.UUIDString(userID),
			"total":   total,
		})
	}

	return Output{
		OrderID: store.UUIDString(order.ID),
		Status:  string(order.Status),
		Total:   total,
		Items:   lines,
	}, nil
}

func normaliseMethod(v string) *string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	return &v
}

func toNullableText(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
