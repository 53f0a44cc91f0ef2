package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/phongthuytaman/backend-store/internal/store"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Querier lists the persistence operations the cart service depends on.
type Querier interface {
	CreateCart(ctx context.Context, userID pgtype.UUID) (store.Cart, error)
	GetCartByUser(ctx context.Context, userID pgtype.UUID) (store.Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (store.Cart, error)
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]store.CartItem, error)
	UpsertCartItem(ctx context.Context, arg store.UpsertCartItemParams) (store.CartItem, error)
	UpdateCartItemQty(ctx context.Context, arg store.UpdateCartItemQtyParams) (store.CartItem, error)
	DeleteCartItem(ctx context.Context, cartID, itemID pgtype.UUID) error
	ClearCart(ctx context.Context, cartID pgtype.UUID) error
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Q Querier
}

// Item is one cart line with its computed total.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Qty       int32  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

// View is the assembled cart returned to clients. Total is always the sum of
// the line totals, each being unit price times quantity.
type View struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
	Total int64  `json:"total"`
}

// EnsureCart loads the user's cart, creating one on first use.
func (s *Service) EnsureCart(ctx context.Context, userID pgtype.UUID) (store.Cart, error) {
	if s == nil || s.Q == nil {
		return store.Cart{}, errors.New("cart service not configured")
	}
	if !userID.Valid {
		return store.Cart{}, ErrInvalidInput
	}
	cart, err := s.Q.GetCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Cart{}, err
	}
	return s.Q.CreateCart(ctx, userID)
}

// AddItem inserts or increments a cart line, snapshotting the product price.
func (s *Service) AddItem(ctx context.Context, cartID, productID pgtype.UUID, qty int32) (store.CartItem, error) {
	if s == nil || s.Q == nil {
		return store.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return store.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	product, err := s.Q.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CartItem{}, fmt.Errorf("product: %w", ErrNotFound)
		}
		return store.CartItem{}, err
	}
	if !product.Active {
		return store.CartItem{}, fmt.Errorf("product inactive: %w", ErrInvalidInput)
	}
	return s.Q.UpsertCartItem(ctx, store.UpsertCartItemParams{
		CartID:    cartID,
		ProductID: productID,
		Qty:       qty,
		UnitPrice: product.Price,
	})
}

// UpdateItem replaces a line's quantity; zero or negative removes the line.
func (s *Service) UpdateItem(ctx context.Context, cartID, itemID pgtype.UUID, qty int32) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return s.Q.DeleteCartItem(ctx, cartID, itemID)
	}
	_, err := s.Q.UpdateCartItemQty(ctx, store.UpdateCartItemQtyParams{
		CartID: cartID,
		ItemID: itemID,
		Qty:    qty,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// RemoveItem deletes one line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID pgtype.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return s.Q.DeleteCartItem(ctx, cartID, itemID)
}

// Get assembles the cart view with computed line and cart totals.
func (s *Service) Get(ctx context.Context, cartID pgtype.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	items, err := s.Q.ListCartItems(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	view := View{ID: store.UUIDString(cartID), Items: make([]Item, 0, len(items))}
	for _, it := range items {
		line := Item{
			ID:        store.UUIDString(it.ID),
			ProductID: store.UUIDString(it.ProductID),
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			LineTotal: it.UnitPrice * int64(it.Qty),
		}
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
	}
	return view, nil
}
