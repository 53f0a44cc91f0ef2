package payment

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	name       string
	created    []CreateRequest
	createResp CreateResponse
	createErr  error
	verify     CallbackResult
	queryResp  StatusResult
	queryErr   error
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) CreatePayment(_ context.Context, req CreateRequest) (CreateResponse, error) {
	g.created = append(g.created, req)
	if g.createErr != nil {
		return CreateResponse{}, g.createErr
	}
	resp := g.createResp
	resp.Gateway = g.name
	resp.OrderRef = req.OrderRef
	return resp, nil
}

func (g *stubGateway) VerifyCallback(_ *http.Request, _ []byte) CallbackResult {
	return g.verify
}

func (g *stubGateway) QueryStatus(_ context.Context, _ string) (StatusResult, error) {
	return g.queryResp, g.queryErr
}

func (g *stubGateway) AckCallback(result CallbackResult) (int, any) {
	if !result.Valid {
		return http.StatusOK, map[string]any{"return_code": -1, "return_message": "invalid"}
	}
	return http.StatusOK, map[string]any{"return_code": 1, "return_message": "success"}
}

func newStubService(gw *stubGateway) *Service {
	return &Service{
		Gateways: map[string]Gateway{gw.name: gw},
		Refs:     &RefGenerator{},
	}
}

func TestCreateRejectsInvalidAmount(t *testing.T) {
	gw := &stubGateway{name: "zalopay"}
	svc := newStubService(gw)
	for _, amount := range []int64{0, -5} {
		_, err := svc.Create(context.Background(), CreateParams{Gateway: "zalopay", Amount: amount})
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
	require.Empty(t, gw.created, "gateway must not be called for invalid amounts")
}

func TestCreateRejectsUnknownGateway(t *testing.T) {
	svc := newStubService(&stubGateway{name: "zalopay"})
	_, err := svc.Create(context.Background(), CreateParams{Gateway: "stripe", Amount: 1000})
	require.Error(t, err)
}

func TestCreateDispatchesWithFreshRef(t *testing.T) {
	gw := &stubGateway{name: "zalopay", createResp: CreateResponse{PayURL: "https://pay.example/abc"}}
	svc := newStubService(gw)

	resp, err := svc.Create(context.Background(), CreateParams{
		Gateway:  "ZaloPay", // key lookup is case-insensitive
		Amount:   50_000,
		ClientIP: "203.0.113.9",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/abc", resp.PayURL)
	require.Len(t, gw.created, 1)
	require.Equal(t, int64(50_000), gw.created[0].Amount)
	require.Contains(t, gw.created[0].OrderRef, "_")
	require.Equal(t, resp.OrderRef, gw.created[0].OrderRef)

	second, err := svc.Create(context.Background(), CreateParams{Gateway: "zalopay", Amount: 50_000})
	require.NoError(t, err)
	require.NotEqual(t, resp.OrderRef, second.OrderRef)
}

func TestCreatePropagatesGatewayError(t *testing.T) {
	gw := &stubGateway{name: "zalopay", createErr: ErrGatewayUnavailable}
	svc := newStubService(gw)
	_, err := svc.Create(context.Background(), CreateParams{Gateway: "zalopay", Amount: 1000})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestStubRefShape(t *testing.T) {
	gw := &stubGateway{name: "zalopay"}
	svc := newStubService(gw)
	_, err := svc.Create(context.Background(), CreateParams{Gateway: "zalopay", Amount: 1})
	require.NoError(t, err)
	parts := strings.SplitN(gw.created[0].OrderRef, "_", 2)
	require.Len(t, parts, 2)
	require.Len(t, parts[0], 6)
}
