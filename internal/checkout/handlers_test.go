package checkout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/common"
	"github.com/phongthuytaman/backend-store/internal/store"
)

func TestCheckoutRequiresAuth(t *testing.T) {
	h := &Handler{Svc: &Service{}}
	rec := httptest.NewRecorder()
	h.Checkout(rec, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	h := &Handler{Svc: &Service{}}
	req := httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(`{"paymentMethod":"paypal"}`))
	req = req.WithContext(common.WithUserID(req.Context(), store.UUIDString(store.NewUUID())))

	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BAD_REQUEST")
}
