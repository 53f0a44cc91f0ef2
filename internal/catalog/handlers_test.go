package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/store"
)

type fakeProducts struct {
	products []store.Product
}

func (f *fakeProducts) ListProducts(_ context.Context, arg store.ListProductsParams) ([]store.Product, error) {
	start := int(arg.Offset)
	if start >= len(f.products) {
		return nil, nil
	}
	end := start + int(arg.Limit)
	if end > len(f.products) {
		end = len(f.products)
	}
	return f.products[start:end], nil
}

func (f *fakeProducts) CountProducts(_ context.Context) (int64, error) {
	return int64(len(f.products)), nil
}

func (f *fakeProducts) GetProductBySlug(_ context.Context, slug string) (store.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return store.Product{}, pgx.ErrNoRows
}

func testProduct(slug, name string, price int64) store.Product {
	return store.Product{
		ID:     store.NewUUID(),
		Slug:   slug,
		Name:   name,
		Price:  price,
		Active: true,
	}
}

func newTestHandler(t *testing.T, products ...store.Product) *Handler {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Queries:      &fakeProducts{products: products},
		DefaultLimit: 20,
	})
	require.NoError(t, err)
	return NewHandler(svc)
}

func TestProductsListing(t *testing.T) {
	h := newTestHandler(t,
		testProduct("phong-thuy-consult", "Tu van phong thuy", 500_000),
		testProduct("la-ban", "La ban cao cap", 1_200_000),
	)

	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest("GET", "/api/v1/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	require.Contains(t, rec.Body.String(), "phong-thuy-consult")
}

func TestProductsRejectsBadPage(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest("GET", "/api/v1/products?page=zero", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductDetail(t *testing.T) {
	h := newTestHandler(t, testProduct("la-ban", "La ban cao cap", 1_200_000))

	router := chi.NewRouter()
	router.Get("/api/v1/products/{slug}", h.ProductDetail)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/products/la-ban", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "La ban cao cap")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/products/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductDetailHidesInactive(t *testing.T) {
	inactive := testProduct("hidden", "Hidden", 1)
	inactive.Active = false
	h := newTestHandler(t, inactive)

	router := chi.NewRouter()
	router.Get("/api/v1/products/{slug}", h.ProductDetail)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/products/hidden", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
