package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/common"
)

func newReplayClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	gw := &stubGateway{name: "zalopay", verify: CallbackResult{Valid: false, Err: ErrSignatureMismatch}}
	_, client := newReplayClient(t)
	hook := Webhook{
		Svc:       &Service{Gateways: map[string]Gateway{"zalopay": gw}},
		Replay:    client,
		ReplayTTL: time.Hour,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(`{"data":"x","mac":"bad"}`))
	hook.HandlerFor("zalopay")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, -1, body["return_code"])
}

func TestWebhookDuplicateReacksWithoutSideEffects(t *testing.T) {
	result := CallbackResult{
		Valid:           true,
		OrderRef:        "260828_77",
		Amount:          50_000,
		Status:          StatusSuccess,
		ProviderPayload: []byte(`{"app_trans_id":"260828_77"}`),
	}
	gw := &stubGateway{name: "zalopay", verify: result}
	_, client := newReplayClient(t)
	// Svc.Q is nil: any settlement attempt would 500. A duplicate must never
	// reach settlement.
	hook := Webhook{
		Svc:       &Service{Gateways: map[string]Gateway{"zalopay": gw}},
		Replay:    client,
		ReplayTTL: time.Hour,
	}

	key := fmt.Sprintf("pay:cb:zalopay:%s", common.Sha256Hex(result.OrderRef+string(result.ProviderPayload)))
	require.NoError(t, client.Set(context.Background(), key, "1", time.Hour).Err())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(`{"data":"...","mac":"..."}`))
	hook.HandlerFor("zalopay")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body["return_code"])
}

func TestWebhookSettleFailureReleasesReplayMark(t *testing.T) {
	result := CallbackResult{
		Valid:           true,
		OrderRef:        "260828_88",
		Amount:          75_000,
		Status:          StatusSuccess,
		ProviderPayload: []byte(`{"app_trans_id":"260828_88"}`),
	}
	gw := &stubGateway{name: "zalopay", verify: result}
	mr, client := newReplayClient(t)
	// Svc.Q is nil so every settlement attempt fails, as it would with the
	// database down while the gateway is delivering.
	hook := Webhook{
		Svc:       &Service{Gateways: map[string]Gateway{"zalopay": gw}},
		Replay:    client,
		ReplayTTL: time.Hour,
	}

	deliver := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/callback", strings.NewReader(`{"data":"...","mac":"..."}`))
		hook.HandlerFor("zalopay")(rec, req)
		return rec
	}

	rec := deliver()
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The failed delivery must not leave its replay mark behind.
	key := fmt.Sprintf("pay:cb:zalopay:%s", common.Sha256Hex(result.OrderRef+string(result.ProviderPayload)))
	require.False(t, mr.Exists(key))

	// The gateway's retry reaches settlement again instead of being
	// swallowed as a duplicate success.
	rec = deliver()
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), `"return_code":1`)
}

func TestWebhookUnknownGateway(t *testing.T) {
	hook := Webhook{Svc: &Service{Gateways: map[string]Gateway{}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader("{}"))
	hook.HandlerFor("stripe")(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
