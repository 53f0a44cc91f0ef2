package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phongthuytaman/backend-store/internal/config"
	"github.com/phongthuytaman/backend-store/internal/sign"
)

func testVNPay() VNPay {
	return VNPay{
		Cfg: config.VNPay{
			TmnCode:    "TESTCODE",
			HashSecret: "vnpay-secret",
			PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "https://shop.example.com/payment/return",
			Locale:     "vn",
		},
		Now: func() time.Time { return time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC) },
	}
}

func TestVNPayCreatePaymentBuildsSignedURL(t *testing.T) {
	gw := testVNPay()
	resp, err := gw.CreatePayment(context.Background(), CreateRequest{
		OrderRef: "260828_1756377000000000042",
		Amount:   10_000_000,
		ClientIP: "203.0.113.9",
	})
	require.NoError(t, err)
	require.Equal(t, "vnpay", resp.Gateway)

	parsed, err := url.Parse(resp.PayURL)
	require.NoError(t, err)
	query := parsed.Query()

	require.Equal(t, "2.1.0", query.Get("vnp_Version"))
	require.Equal(t, "pay", query.Get("vnp_Command"))
	require.Equal(t, "VND", query.Get("vnp_CurrCode"))
	require.Equal(t, "1000000000", query.Get("vnp_Amount"))
	require.Equal(t, "260828_1756377000000000042", query.Get("vnp_TxnRef"))
	require.Equal(t, "203.0.113.9", query.Get("vnp_IpAddr"))
	require.Equal(t, "20260828103000", query.Get("vnp_CreateDate"))

	// Recompute the signature independently over the canonical string.
	params := map[string]string{}
	for key := range query {
		if key == "vnp_SecureHash" {
			continue
		}
		params[key] = query.Get(key)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	mac := hmac.New(sha512.New, []byte("vnpay-secret"))
	mac.Write([]byte(strings.Join(pairs, "&")))
	require.Equal(t, hex.EncodeToString(mac.Sum(nil)), query.Get("vnp_SecureHash"))
}

func TestVNPayCreatePaymentRejectsInvalidAmount(t *testing.T) {
	gw := testVNPay()
	for _, amount := range []int64{0, -5} {
		_, err := gw.CreatePayment(context.Background(), CreateRequest{OrderRef: "260828_1", Amount: amount})
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func signedCallbackURL(t *testing.T, secret string, params map[string]string) string {
	t.Helper()
	signature := sign.Sign(params, secret, sign.HMACSHA512)
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("vnp_SecureHash", signature)
	return "/callback/vnpay?" + values.Encode()
}

func TestVNPayVerifyCallback(t *testing.T) {
	gw := testVNPay()
	params := map[string]string{
		"vnp_TmnCode":      "TESTCODE",
		"vnp_TxnRef":       "260828_42",
		"vnp_Amount":       "1000000000",
		"vnp_ResponseCode": "00",
	}

	r := httptest.NewRequest("GET", signedCallbackURL(t, "vnpay-secret", params), nil)
	result := gw.VerifyCallback(r, nil)
	require.True(t, result.Valid)
	require.Equal(t, "260828_42", result.OrderRef)
	require.Equal(t, int64(10_000_000), result.Amount)
	require.Equal(t, StatusSuccess, result.Status)

	// Non-00 response code is a failed payment, not a rejected callback.
	failed := map[string]string{}
	for k, v := range params {
		failed[k] = v
	}
	failed["vnp_ResponseCode"] = "24"
	r = httptest.NewRequest("GET", signedCallbackURL(t, "vnpay-secret", failed), nil)
	result = gw.VerifyCallback(r, nil)
	require.True(t, result.Valid)
	require.Equal(t, StatusFailed, result.Status)

	// Wrong secret.
	r = httptest.NewRequest("GET", signedCallbackURL(t, "other-secret", params), nil)
	result = gw.VerifyCallback(r, nil)
	require.False(t, result.Valid)
	require.ErrorIs(t, result.Err, ErrSignatureMismatch)

	// Tampered amount after signing.
	u := signedCallbackURL(t, "vnpay-secret", params)
	u = strings.Replace(u, "1000000000", "1", 1)
	r = httptest.NewRequest("GET", u, nil)
	result = gw.VerifyCallback(r, nil)
	require.False(t, result.Valid)

	// Missing reference.
	r = httptest.NewRequest("GET", "/callback/vnpay?vnp_Amount=100", nil)
	result = gw.VerifyCallback(r, nil)
	require.False(t, result.Valid)
	require.ErrorIs(t, result.Err, ErrMalformedCallback)
}

func TestVNPayAckCallback(t *testing.T) {
	gw := testVNPay()
	status, body := gw.AckCallback(CallbackResult{Valid: true})
	require.Equal(t, 200, status)
	require.Equal(t, map[string]string{"RspCode": "00", "Message": "success"}, body)

	status, body = gw.AckCallback(CallbackResult{Valid: false})
	require.Equal(t, 200, status)
	require.Equal(t, map[string]string{"RspCode": "97", "Message": "Checksum failed"}, body)
}
