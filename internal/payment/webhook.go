package payment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/phongthuytaman/backend-store/internal/common"
	"github.com/phongthuytaman/backend-store/internal/obs"
)

// Webhook receives gateway notifications: verify the signature, guard
// against replays, settle, then answer in the gateway's own ack format.
type Webhook struct {
	Svc       *Service
	Replay    *redis.Client
	ReplayTTL time.Duration
	Log       zerolog.Logger
}

// HandlerFor returns the callback handler for one gateway.
func (h Webhook) HandlerFor(gatewayKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.handle(w, r, gatewayKey)
	}
}

func (h Webhook) handle(w http.ResponseWriter, r *http.Request, gatewayKey string) {
	if h.Svc == nil || h.Svc.Gateways == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	gatewayKey = normaliseGatewayKey(gatewayKey)
	gw, ok := h.Svc.Gateways[gatewayKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "GATEWAY_NOT_SUPPORTED", "unknown gateway", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	result := gw.VerifyCallback(r, body)
	if !result.Valid {
		h.Log.Warn().
			Str("gateway", gatewayKey).
			Str("ref", result.OrderRef).
			Err(result.Err).
			Msg("callback rejected")
		if obs.PaymentCallbackTotal != nil {
			obs.PaymentCallbackTotal.WithLabelValues(gatewayKey, "rejected").Inc()
		}
		status, ack := gw.AckCallback(result)
		common.JSON(w, status, ack)
		return
	}

	var replayKey string
	if h.Replay != nil && h.ReplayTTL > 0 {
		replayKey = fmt.Sprintf("pay:cb:%s:%s", gatewayKey, common.Sha256Hex(result.OrderRef+string(result.ProviderPayload)))
		fresh, err := h.Replay.SetNX(r.Context(), replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !fresh {
			// The gateway retried a notification we already processed.
			// Re-ack as success so it stops retrying; nothing mutates.
			if obs.PaymentCallbackTotal != nil {
				obs.PaymentCallbackTotal.WithLabelValues(gatewayKey, "duplicate").Inc()
			}
			status, ack := gw.AckCallback(result)
			common.JSON(w, status, ack)
			return
		}
	}

	if err := h.Svc.Settle(r.Context(), result.OrderRef, result.Status, result.ProviderPayload); err != nil {
		// The notification never took effect, so the gateway's retry must
		// not hit the duplicate branch. Release the replay mark.
		if replayKey != "" {
			if delErr := h.Replay.Del(r.Context(), replayKey).Err(); delErr != nil {
				h.Log.Error().Err(delErr).Str("gateway", gatewayKey).Str("ref", result.OrderRef).Msg("replay mark not released")
			}
		}
		if errors.Is(err, ErrPaymentNotFound) {
			h.Log.Warn().Str("gateway", gatewayKey).Str("ref", result.OrderRef).Msg("callback for unknown reference")
			common.JSONError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "SETTLE_ERROR", err.Error(), nil)
		return
	}
	if obs.PaymentCallbackTotal != nil {
		obs.PaymentCallbackTotal.WithLabelValues(gatewayKey, "accepted").Inc()
	}
	h.Log.Info().
		Str("gateway", gatewayKey).
		Str("ref", result.OrderRef).
		Str("status", string(result.Status)).
		Msg("callback settled")
	status, ack := gw.AckCallback(result)
	common.JSON(w, status, ack)
}
