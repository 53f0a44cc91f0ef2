package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phongthuytaman/backend-store/internal/config"
	"github.com/phongthuytaman/backend-store/internal/resilience"
	"github.com/phongthuytaman/backend-store/internal/sign"
)

// VNPay implements the redirect-style gateway: the payment URL is built and
// signed locally, the customer is sent to the gateway's hosted page, and the
// gateway notifies us via return URL and IPN.
type VNPay struct {
	Cfg  config.VNPay
	HTTP resilience.HTTPClient
	Now  func() time.Time
}

// Name identifies the gateway in routes, metrics and storage.
func (g VNPay) Name() string { return "vnpay" }

// CreatePayment builds the signed redirect URL. No network call is made; the
// gateway only learns about the transaction when the customer lands on it.
func (g VNPay) CreatePayment(_ context.Context, req CreateRequest) (CreateResponse, error) {
	if req.Amount <= 0 {
		return CreateResponse{}, ErrInvalidAmount
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	locale := g.Cfg.Locale
	if locale == "" {
		locale = "vn"
	}
	orderInfo := req.Description
	if orderInfo == "" {
		orderInfo = "Thanh toan cho ma GD:" + req.OrderRef
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.Cfg.ReturnURL
	}
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.Cfg.TmnCode,
		"vnp_Locale":     locale,
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     req.OrderRef,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  "other",
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": now.Format("20060102150405"),
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}
	// Signature over the canonical unencoded string; URL-encoding happens
	// only when the query is emitted.
	signature := sign.Sign(params, g.Cfg.HashSecret, sign.HMACSHA512)
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("vnp_SecureHash", signature)
	payURL := g.Cfg.PayURL + "?" + values.Encode()
	return CreateResponse{
		Gateway:  g.Name(),
		OrderRef: req.OrderRef,
		PayURL:   payURL,
	}, nil
}

// VerifyCallback handles both the browser return and the server-side IPN:
// in each case the gateway sends vnp_* query parameters signed with the
// shared hash secret.
func (g VNPay) VerifyCallback(r *http.Request, _ []byte) CallbackResult {
	query := r.URL.Query()
	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}
	signature := params["vnp_SecureHash"]
	delete(params, "vnp_SecureHash")
	delete(params, "vnp_SecureHashType")
	ref := params["vnp_TxnRef"]
	if ref == "" || signature == "" {
		return CallbackResult{Valid: false, Err: ErrMalformedCallback}
	}
	if !sign.Verify(params, signature, g.Cfg.HashSecret, sign.HMACSHA512) {
		return CallbackResult{Valid: false, OrderRef: ref, Err: ErrSignatureMismatch}
	}
	amount, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil {
		return CallbackResult{Valid: false, OrderRef: ref, Err: ErrMalformedCallback}
	}
	payload, _ := json.Marshal(params)
	return CallbackResult{
		Valid:           true,
		OrderRef:        ref,
		Amount:          amount / 100,
		Status:          vnpayResponseStatus(params["vnp_ResponseCode"]),
		ProviderPayload: payload,
	}
}

// QueryStatus asks the querydr endpoint about a transaction. The request is
// signed over the pipe-joined field string the endpoint expects.
func (g VNPay) QueryStatus(ctx context.Context, orderRef string) (StatusResult, error) {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	requestID := strconv.FormatInt(now.UnixNano(), 10)
	createDate := now.Format("20060102150405")
	orderInfo := "Truy van GD ma:" + orderRef
	data := strings.Join([]string{
		requestID, "2.1.0", "querydr", g.Cfg.TmnCode, orderRef,
		createDate, createDate, "127.0.0.1", orderInfo,
	}, "|")
	body, err := json.Marshal(map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         "2.1.0",
		"vnp_Command":         "querydr",
		"vnp_TmnCode":         g.Cfg.TmnCode,
		"vnp_TxnRef":          orderRef,
		"vnp_OrderInfo":       orderInfo,
		"vnp_TransactionDate": createDate,
		"vnp_CreateDate":      createDate,
		"vnp_IpAddr":          "127.0.0.1",
		"vnp_SecureHash":      sign.SignRaw(data, g.Cfg.HashSecret, sign.HMACSHA512),
	})
	if err != nil {
		return StatusResult{Status: StatusUnknown}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Cfg.QueryURL, strings.NewReader(string(body)))
	if err != nil {
		return StatusResult{Status: StatusUnknown}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.HTTP.Do(ctx, req)
	if err != nil {
		return StatusResult{Status: StatusUnknown}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusResult{Status: StatusUnknown}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var parsed struct {
		ResponseCode      string `json:"vnp_ResponseCode"`
		TransactionStatus string `json:"vnp_TransactionStatus"`
	}
	raw, err := readJSON(resp, &parsed)
	if err != nil {
		return StatusResult{Status: StatusUnknown, Raw: raw}, nil
	}
	if parsed.ResponseCode != "00" {
		return StatusResult{Status: StatusUnknown, Raw: raw}, nil
	}
	return StatusResult{Status: vnpayTransactionStatus(parsed.TransactionStatus), Raw: raw}, nil
}

// AckCallback answers the IPN the way the gateway's retry logic expects.
func (g VNPay) AckCallback(result CallbackResult) (int, any) {
	if !result.Valid {
		return http.StatusOK, map[string]string{"RspCode": "97", "Message": "Checksum failed"}
	}
	return http.StatusOK, map[string]string{"RspCode": "00", "Message": "success"}
}

func vnpayResponseStatus(code string) Status {
	if code == "00" {
		return StatusSuccess
	}
	return StatusFailed
}

func vnpayTransactionStatus(code string) Status {
	switch code {
	case "00":
		return StatusSuccess
	case "01":
		return StatusPending
	case "":
		return StatusUnknown
	default:
		return StatusFailed
	}
}
