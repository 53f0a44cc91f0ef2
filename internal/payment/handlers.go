package payment

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phongthuytaman/backend-store/internal/common"
	"github.com/phongthuytaman/backend-store/internal/store"
)

// Handler exposes the public relay endpoints (amount in, payment URL out)
// and the authenticated order-linked payment endpoints.
type Handler struct {
	Svc *Service
}

type relayReq struct {
	Amount   int64  `json:"amount"`
	BankCode string `json:"bankCode"`
}

// CreateWallet handles POST /payment: open a wallet payment for a bare
// amount and pass the gateway's create response through to the client.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	h.relayCreate(w, r, "zalopay", func(w http.ResponseWriter, resp CreateResponse) {
		if len(resp.Raw) > 0 {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(resp.Raw)
			return
		}
		common.JSON(w, http.StatusOK, map[string]string{"order_url": resp.PayURL})
	})
}

// CreateRedirect handles POST /create-payment: build a signed redirect URL.
func (h *Handler) CreateRedirect(w http.ResponseWriter, r *http.Request) {
	h.relayCreate(w, r, "vnpay", func(w http.ResponseWriter, resp CreateResponse) {
		common.JSON(w, http.StatusOK, map[string]string{"paymentUrl": resp.PayURL})
	})
}

func (h *Handler) relayCreate(w http.ResponseWriter, r *http.Request, gateway string, respond func(http.ResponseWriter, CreateResponse)) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req relayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	resp, err := h.Svc.Create(r.Context(), CreateParams{
		Gateway:  gateway,
		Amount:   req.Amount,
		ClientIP: clientIP(r),
		BankCode: req.BankCode,
	})
	if err != nil {
		common.JSONAppError(w, AsAppError(err))
		return
	}
	respond(w, resp)
}

type checkStatusReq struct {
	AppTransID string `json:"app_trans_id"`
}

// CheckStatus handles POST /check-status-order: query the wallet gateway for
// a reference and pass its status JSON through verbatim.
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req checkStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	req.AppTransID = strings.TrimSpace(req.AppTransID)
	if req.AppTransID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "app_trans_id is required", nil)
		return
	}
	result, err := h.Svc.QueryGateway(r.Context(), "zalopay", req.AppTransID)
	if err != nil {
		common.JSONAppError(w, AsAppError(err))
		return
	}
	if len(result.Raw) > 0 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Raw)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": string(result.Status)})
}

type orderPaymentReq struct {
	OrderID string `json:"orderId"`
	Gateway string `json:"gateway"`
}

// CreateForOrder handles POST /api/v1/payments for the authenticated user:
// open a payment against the order's stored total.
func (h *Handler) CreateForOrder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	var req orderPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	orderUUID, err := store.ToUUID(strings.TrimSpace(req.OrderID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	userUUID, err := store.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user", nil)
		return
	}
	if _, err := h.Svc.Q.GetOrderByIDForUser(r.Context(), orderUUID, userUUID); err != nil {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}
	resp, err := h.Svc.CreateForOrder(r.Context(), orderUUID, req.Gateway, clientIP(r))
	if err != nil {
		common.JSONAppError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{
		"gateway":    resp.Gateway,
		"orderRef":   resp.OrderRef,
		"paymentUrl": resp.PayURL,
	})
}

// Status handles GET /api/v1/payments/{orderId}/status for the order owner.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	orderUUID, err := store.ToUUID(strings.TrimSpace(chi.URLParam(r, "orderId")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	userUUID, err := store.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user", nil)
		return
	}
	if _, err := h.Svc.Q.GetOrderByIDForUser(r.Context(), orderUUID, userUUID); err != nil {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}
	status, err := h.Svc.ConsolidatedStatus(r.Context(), orderUUID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "STATUS_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
