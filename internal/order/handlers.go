package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/phongthuytaman/backend-store/internal/common"
	"github.com/phongthuytaman/backend-store/internal/store"
)

// Handler exposes the customer-facing order endpoints. Every route resolves
// orders through the authenticated user, so one customer can never read
// another's orders.
type Handler struct {
	Q *store.Queries
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, limit, err := parsePage(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	orders, err := h.Q.ListOrdersByUser(r.Context(), store.ListOrdersByUserParams{
		UserID: userID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, orderSummary(ord))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       response,
		"pagination": common.Pagination{Page: int(page), PerPage: int(limit), TotalItems: len(response)},
	})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, err := store.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, err := h.Q.GetOrderByIDForUser(r.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	responseItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		responseItems = append(responseItems, map[string]any{
			"id":        store.UUIDString(it.ID),
			"productId": store.UUIDString(it.ProductID),
			"name":      it.Name,
			"qty":       it.Qty,
			"unitPrice": it.UnitPrice,
			"total":     it.TotalPrice,
		})
	}
	detail := orderSummary(ord)
	detail["items"] = responseItems
	detail["notes"] = nullableText(ord.Notes)
	if payment, err := h.Q.GetLatestPaymentByOrder(r.Context(), ord.ID); err == nil {
		detail["payment"] = map[string]any{
			"orderRef": payment.OrderRef,
			"gateway":  payment.Gateway,
			"status":   payment.Status,
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel. Only orders still
// awaiting payment may be canceled by the customer.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, err := store.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, err := h.Q.GetOrderByIDForUser(r.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed", nil)
		return
	}
	if ord.Status != store.OrderStatusPENDINGPAYMENT {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "only pending orders can be canceled", nil)
		return
	}
	if err := h.Q.UpdateOrderStatus(r.Context(), store.UpdateOrderStatusParams{ID: ord.ID, Status: store.OrderStatusCANCELED}); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": store.OrderStatusCANCELED}})
}

func orderSummary(ord store.Order) map[string]any {
	return map[string]any{
		"id":            store.UUIDString(ord.ID),
		"status":        ord.Status,
		"total":         ord.Total,
		"paymentMethod": nullableText(ord.PaymentMethod),
		"createdAt":     ord.CreatedAt,
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return pgtype.UUID{}, false
	}
	userID, err := store.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session", nil)
		return pgtype.UUID{}, false
	}
	return userID, true
}

func parsePage(r *http.Request) (page, limit int32, err error) {
	page, limit = 1, 20
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = int32(n)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 || n > 100 {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
		limit = int32(n)
	}
	return page, limit, nil
}

func nullableText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
