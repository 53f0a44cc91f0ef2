package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/phongthuytaman/backend-store/internal/common"
	"github.com/phongthuytaman/backend-store/internal/store"
)

// AdminHandler provides administrative order management endpoints. Routes
// using it must be mounted behind the admin role middleware.
type AdminHandler struct {
	Q *store.Queries
}

// List handles GET /api/v1/admin/orders with an optional status filter.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	page, limit, err := parsePage(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		if !validOrderStatus(store.OrderStatus(raw)) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status filter", nil)
			return
		}
		status = &raw
	}
	orders, err := h.Q.ListOrders(r.Context(), store.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		summary := orderSummary(ord)
		summary["userId"] = store.UUIDString(ord.UserID)
		response = append(response, summary)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       response,
		"pagination": common.Pagination{Page: int(page), PerPage: int(limit), TotalItems: len(response)},
	})
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// PatchStatus handles PATCH /api/v1/admin/orders/{orderId}/status.
// PAID and CANCELED are terminal; only a pending order can move.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	orderID, err := store.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	target := store.OrderStatus(req.Status)
	if target != store.OrderStatusPAID && target != store.OrderStatusCANCELED {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	ord, err := h.Q.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if ord.Status != store.OrderStatusPENDINGPAYMENT {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order is already finalised", nil)
		return
	}
	if err := h.Q.UpdateOrderStatus(r.Context(), store.UpdateOrderStatusParams{ID: ord.ID, Status: target}); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order status", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validOrderStatus(s store.OrderStatus) bool {
	switch s {
	case store.OrderStatusPENDINGPAYMENT, store.OrderStatusPAID, store.OrderStatusCANCELED:
		return true
	}
	return false
}
