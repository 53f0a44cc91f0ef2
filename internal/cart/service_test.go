package cart

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/store"
)

type fakeCartStore struct {
	carts    map[string]store.Cart
	items    map[string][]store.CartItem
	products map[string]store.Product
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		carts:    map[string]store.Cart{},
		items:    map[string][]store.CartItem{},
		products: map[string]store.Product{},
	}
}

func (f *fakeCartStore) CreateCart(_ context.Context, userID pgtype.UUID) (store.Cart, error) {
	c := store.Cart{ID: store.NewUUID(), UserID: userID}
	f.carts[store.UUIDString(userID)] = c
	return c, nil
}

func (f *fakeCartStore) GetCartByUser(_ context.Context, userID pgtype.UUID) (store.Cart, error) {
	c, ok := f.carts[store.UUIDString(userID)]
	if !ok {
		return store.Cart{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeCartStore) GetCartByID(_ context.Context, id pgtype.UUID) (store.Cart, error) {
	for _, c := range f.carts {
		if store.UUIDEqual(c.ID, id) {
			return c, nil
		}
	}
	return store.Cart{}, pgx.ErrNoRows
}

func (f *fakeCartStore) ListCartItems(_ context.Context, cartID pgtype.UUID) ([]store.CartItem, error) {
	return f.items[store.UUIDString(cartID)], nil
}

func (f *fakeCartStore) UpsertCartItem(_ context.Context, arg store.UpsertCartItemParams) (store.CartItem, error) {
	key := store.UUIDString(arg.CartID)
	for i, it := range f.items[key] {
		if store.UUIDEqual(it.ProductID, arg.ProductID) {
			it.Qty += arg.Qty
			it.UnitPrice = arg.UnitPrice
			f.items[key][i] = it
			return it, nil
		}
	}
	it := store.CartItem{
		ID:        store.NewUUID(),
		CartID:    arg.CartID,
		ProductID: arg.ProductID,
		Qty:       arg.Qty,
		UnitPrice: arg.UnitPrice,
	}
	f.items[key] = append(f.items[key], it)
	return it, nil
}

func (f *fakeCartStore) UpdateCartItemQty(_ context.Context, arg store.UpdateCartItemQtyParams) (store.CartItem, error) {
	key := store.UUIDString(arg.CartID)
	for i, it := range f.items[key] {
		if store.UUIDEqual(it.ID, arg.ItemID) {
			it.Qty = arg.Qty
			f.items[key][i] = it
			return it, nil
		}
	}
	return store.CartItem{}, pgx.ErrNoRows
}

func (f *fakeCartStore) DeleteCartItem(_ context.Context, cartID, itemID pgtype.UUID) error {
	key := store.UUIDString(cartID)
	kept := f.items[key][:0]
	for _, it := range f.items[key] {
		if !store.UUIDEqual(it.ID, itemID) {
			kept = append(kept, it)
		}
	}
	f.items[key] = kept
	return nil
}

func (f *fakeCartStore) ClearCart(_ context.Context, cartID pgtype.UUID) error {
	delete(f.items, store.UUIDString(cartID))
	return nil
}

func (f *fakeCartStore) GetProductByID(_ context.Context, id pgtype.UUID) (store.Product, error) {
	p, ok := f.products[store.UUIDString(id)]
	if !ok {
		return store.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeCartStore) addProduct(price int64, active bool) store.Product {
	p := store.Product{ID: store.NewUUID(), Price: price, Active: active}
	f.products[store.UUIDString(p.ID)] = p
	return p
}

func TestEnsureCartCreatesOnce(t *testing.T) {
	fake := newFakeCartStore()
	svc := &Service{Q: fake}
	userID := store.NewUUID()

	first, err := svc.EnsureCart(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.EnsureCart(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, store.UUIDEqual(first.ID, second.ID))
}

func TestCartTotalsMatchLineItems(t *testing.T) {
	fake := newFakeCartStore()
	svc := &Service{Q: fake}
	cart, err := svc.EnsureCart(context.Background(), store.NewUUID())
	require.NoError(t, err)

	compass := fake.addProduct(1_200_000, true)
	bracelet := fake.addProduct(350_000, true)

	_, err = svc.AddItem(context.Background(), cart.ID, compass.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), cart.ID, bracelet.ID, 3)
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	var sum int64
	for _, it := range view.Items {
		require.Equal(t, it.UnitPrice*int64(it.Qty), it.LineTotal)
		sum += it.LineTotal
	}
	require.Equal(t, sum, view.Total)
	require.Equal(t, int64(2*1_200_000+3*350_000), view.Total)
}

func TestAddItemAccumulatesQty(t *testing.T) {
	fake := newFakeCartStore()
	svc := &Service{Q: fake}
	cart, err := svc.EnsureCart(context.Background(), store.NewUUID())
	require.NoError(t, err)
	p := fake.addProduct(100, true)

	_, err = svc.AddItem(context.Background(), cart.ID, p.ID, 1)
	require.NoError(t, err)
	it, err := svc.AddItem(context.Background(), cart.ID, p.ID, 4)
	require.NoError(t, err)
	require.Equal(t, int32(5), it.Qty)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	fake := newFakeCartStore()
	svc := &Service{Q: fake}
	cart, err := svc.EnsureCart(context.Background(), store.NewUUID())
	require.NoError(t, err)
	hidden := fake.addProduct(100, false)

	_, err = svc.AddItem(context.Background(), cart.ID, hidden.ID, 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(context.Background(), cart.ID, store.NewUUID(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemZeroQtyRemovesLine(t *testing.T) {
	fake := newFakeCartStore()
	svc := &Service{Q: fake}
	cart, err := svc.EnsureCart(context.Background(), store.NewUUID())
	require.NoError(t, err)
	p := fake.addProduct(100, true)

	it, err := svc.AddItem(context.Background(), cart.ID, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateItem(context.Background(), cart.ID, it.ID, 0))

	view, err := svc.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Zero(t, view.Total)
}
