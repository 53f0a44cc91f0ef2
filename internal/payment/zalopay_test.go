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

	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/config"
	"github.com/phongthuytaman/backend-store/internal/resilience"
	"github.com/phongthuytaman/backend-store/internal/sign"
)

func testZaloPay(createURL, queryURL string) ZaloPay {
	return ZaloPay{
		Cfg: config.ZaloPay{
			AppID:       "2553",
			Key1:        "zalo-key1",
			Key2:        "zalo-key2",
			CreateURL:   createURL,
			QueryURL:    queryURL,
			CallbackURL: "https://shop.example.com/callback",
			ReturnURL:   "https://shop.example.com/payment/return",
			AppUser:     "user123",
		},
		HTTP: resilience.HTTPClient{Client: &http.Client{}, Timeout: 2 * time.Second},
		Now:  func() time.Time { return time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC) },
	}
}

func TestZaloPayCreatePayment(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"return_code":1,"return_message":"success","order_url":"https://qcgateway.zalopay.vn/openinapp?order=abc"}`)
	}))
	defer srv.Close()

	gw := testZaloPay(srv.URL, srv.URL)
	resp, err := gw.CreatePayment(context.Background(), CreateRequest{
		OrderRef: "260828_1756377000000000042",
		Amount:   50_000,
	})
	require.NoError(t, err)
	require.Equal(t, "zalopay", resp.Gateway)
	require.Equal(t, "https://qcgateway.zalopay.vn/openinapp?order=abc", resp.PayURL)

	require.Equal(t, "2553", gotForm["app_id"])
	require.Equal(t, "260828_1756377000000000042", gotForm["app_trans_id"])
	require.Equal(t, "50000", gotForm["amount"])
	require.Equal(t, "user123", gotForm["app_user"])
	require.NotEmpty(t, gotForm["callback_url"])

	// The mac covers the pipe-joined create fields, keyed with key1.
	data := strings.Join([]string{
		gotForm["app_id"], gotForm["app_trans_id"], gotForm["app_user"],
		gotForm["amount"], gotForm["app_time"], gotForm["embed_data"], gotForm["item"],
	}, "|")
	require.Equal(t, sign.SignRaw(data, "zalo-key1", sign.HMACSHA256), gotForm["mac"])
}

func TestZaloPayCreatePaymentGatewayFailures(t *testing.T) {
	gw := testZaloPay("http://127.0.0.1:1", "http://127.0.0.1:1")
	_, err := gw.CreatePayment(context.Background(), CreateRequest{OrderRef: "260828_1", Amount: 1000})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"return_code":2,"return_message":"app id invalid"}`)
	}))
	defer srv.Close()
	gw = testZaloPay(srv.URL, srv.URL)
	_, err = gw.CreatePayment(context.Background(), CreateRequest{OrderRef: "260828_1", Amount: 1000})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	_, err = gw.CreatePayment(context.Background(), CreateRequest{OrderRef: "260828_1", Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func zaloCallbackBody(t *testing.T, key string, data map[string]any) []byte {
	t.Helper()
	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{
		"data": string(encoded),
		"mac":  sign.SignRaw(string(encoded), key, sign.HMACSHA256),
	})
	require.NoError(t, err)
	return body
}

func TestZaloPayVerifyCallback(t *testing.T) {
	gw := testZaloPay("", "")
	payload := map[string]any{"app_trans_id": "260828_77", "amount": 50_000}

	result := gw.VerifyCallback(nil, zaloCallbackBody(t, "zalo-key2", payload))
	require.True(t, result.Valid)
	require.Equal(t, "260828_77", result.OrderRef)
	require.Equal(t, int64(50_000), result.Amount)
	require.Equal(t, StatusSuccess, result.Status)

	// Signed with the outbound key instead of the callback key.
	result = gw.VerifyCallback(nil, zaloCallbackBody(t, "zalo-key1", payload))
	require.False(t, result.Valid)
	require.ErrorIs(t, result.Err, ErrSignatureMismatch)

	result = gw.VerifyCallback(nil, []byte("{not json"))
	require.False(t, result.Valid)
	require.ErrorIs(t, result.Err, ErrMalformedCallback)
}

func TestZaloPayQueryStatus(t *testing.T) {
	returnCode := 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		data := strings.Join([]string{"2553", r.PostForm.Get("app_trans_id"), "zalo-key1"}, "|")
		require.Equal(t, sign.SignRaw(data, "zalo-key1", sign.HMACSHA256), r.PostForm.Get("mac"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"return_code":%d}`, returnCode)
	}))
	defer srv.Close()
	gw := testZaloPay(srv.URL, srv.URL)

	cases := []struct {
		code int
		want Status
	}{
		{1, StatusSuccess},
		{2, StatusFailed},
		{3, StatusPending},
		{-54, StatusUnknown},
	}
	for _, tc := range cases {
		returnCode = tc.code
		result, err := gw.QueryStatus(context.Background(), "260828_77")
		require.NoError(t, err)
		require.Equal(t, tc.want, result.Status, "return_code %d", tc.code)
	}
}

func TestZaloPayQueryStatusUnreachable(t *testing.T) {
	gw := testZaloPay("http://127.0.0.1:1", "http://127.0.0.1:1")
	result, err := gw.QueryStatus(context.Background(), "260828_77")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	require.Equal(t, StatusUnknown, result.Status)
}

func TestZaloPayAckCallback(t *testing.T) {
	gw := testZaloPay("", "")
	status, body := gw.AckCallback(CallbackResult{Valid: true})
	require.Equal(t, 200, status)
	require.Equal(t, map[string]any{"return_code": 1, "return_message": "success"}, body)

	status, body = gw.AckCallback(CallbackResult{Valid: false, Err: ErrSignatureMismatch})
	require.Equal(t, 200, status)
	ack, ok := body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, -1, ack["return_code"])
}
