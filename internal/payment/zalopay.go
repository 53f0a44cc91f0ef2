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

// ZaloPay implements the wallet-style gateway: opening a payment is an
// outbound API call, the customer pays in-app or via QR, and the gateway
// notifies us on a callback URL. Key1 signs everything we send, key2 verifies
// everything the gateway sends.
type ZaloPay struct {
	Cfg  config.ZaloPay
	HTTP resilience.HTTPClient
	Now  func() time.Time
}

// Name identifies the gateway in routes, metrics and storage.
func (g ZaloPay) Name() string { return "zalopay" }

type zaloCreateResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

// CreatePayment POSTs a signed create request and returns the gateway's
// order_url. Any transport failure or non-success reply means no payment
// exists on the gateway side.
func (g ZaloPay) CreatePayment(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	if req.Amount <= 0 {
		return CreateResponse{}, ErrInvalidAmount
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	appUser := g.Cfg.AppUser
	if appUser == "" {
		appUser = "user123"
	}
	description := req.Description
	if description == "" {
		description = "Payment for the order #" + req.OrderRef
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.Cfg.ReturnURL
	}
	embedData, _ := json.Marshal(map[string]string{"redirecturl": returnURL})
	items := "[]"
	appTime := strconv.FormatInt(now.UnixMilli(), 10)
	amount := strconv.FormatInt(req.Amount, 10)

	// mac input order is fixed by the gateway contract.
	data := strings.Join([]string{
		g.Cfg.AppID, req.OrderRef, appUser, amount, appTime, string(embedData), items,
	}, "|")

	form := url.Values{}
	form.Set("app_id", g.Cfg.AppID)
	form.Set("app_trans_id", req.OrderRef)
	form.Set("app_user", appUser)
	form.Set("app_time", appTime)
	form.Set("item", items)
	form.Set("embed_data", string(embedData))
	form.Set("amount", amount)
	form.Set("description", description)
	form.Set("bank_code", req.BankCode)
	form.Set("callback_url", g.Cfg.CallbackURL)
	form.Set("mac", sign.SignRaw(data, g.Cfg.Key1, sign.HMACSHA256))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Cfg.CreateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return CreateResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreateResponse{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var parsed zaloCreateResponse
	raw, err := readJSON(resp, &parsed)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if parsed.ReturnCode != 1 {
		return CreateResponse{}, fmt.Errorf("%w: %s", ErrGatewayUnavailable, parsed.ReturnMessage)
	}
	return CreateResponse{
		Gateway:  g.Name(),
		OrderRef: req.OrderRef,
		PayURL:   parsed.OrderURL,
		Raw:      raw,
	}, nil
}

// VerifyCallback checks the callback envelope {data, mac} against key2 and
// extracts the transaction from the data JSON. A callback only fires for
// successful payments.
func (g ZaloPay) VerifyCallback(_ *http.Request, body []byte) CallbackResult {
	var envelope struct {
		Data string `json:"data"`
		Mac  string `json:"mac"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == "" {
		return CallbackResult{Valid: false, Err: ErrMalformedCallback}
	}
	if !sign.VerifyRaw(envelope.Data, envelope.Mac, g.Cfg.Key2, sign.HMACSHA256) {
		return CallbackResult{Valid: false, Err: ErrSignatureMismatch}
	}
	var data struct {
		AppTransID string `json:"app_trans_id"`
		Amount     int64  `json:"amount"`
	}
	if err := json.Unmarshal([]byte(envelope.Data), &data); err != nil || data.AppTransID == "" {
		return CallbackResult{Valid: false, Err: ErrMalformedCallback}
	}
	return CallbackResult{
		Valid:           true,
		OrderRef:        data.AppTransID,
		Amount:          data.Amount,
		Status:          StatusSuccess,
		ProviderPayload: []byte(envelope.Data),
	}
}

// QueryStatus POSTs a signed query for one transaction and maps the gateway's
// return_code onto the consolidated status enum.
func (g ZaloPay) QueryStatus(ctx context.Context, orderRef string) (StatusResult, error) {
	data := strings.Join([]string{g.Cfg.AppID, orderRef, g.Cfg.Key1}, "|")
	form := url.Values{}
	form.Set("app_id", g.Cfg.AppID)
	form.Set("app_trans_id", orderRef)
	form.Set("mac", sign.SignRaw(data, g.Cfg.Key1, sign.HMACSHA256))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Cfg.QueryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return StatusResult{Status: StatusUnknown}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.HTTP.Do(ctx, req)
	if err != nil {
		return StatusResult{Status: StatusUnknown}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusResult{Status: StatusUnknown}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var parsed struct {
		ReturnCode int `json:"return_code"`
	}
	raw, err := readJSON(resp, &parsed)
	if err != nil {
		return StatusResult{Status: StatusUnknown, Raw: raw}, nil
	}
	switch parsed.ReturnCode {
	case 1:
		return StatusResult{Status: StatusSuccess, Raw: raw}, nil
	case 2:
		return StatusResult{Status: StatusFailed, Raw: raw}, nil
	case 3:
		return StatusResult{Status: StatusPending, Raw: raw}, nil
	default:
		return StatusResult{Status: StatusUnknown, Raw: raw}, nil
	}
}

// AckCallback answers in the envelope the gateway retries against: a
// non-positive return_code tells it to retry, return_code 1 settles the
// notification.
func (g ZaloPay) AckCallback(result CallbackResult) (int, any) {
	if !result.Valid {
		message := "invalid callback"
		if result.Err != nil {
			message = result.Err.Error()
		}
		return http.StatusOK, map[string]any{"return_code": -1, "return_message": message}
	}
	return http.StatusOK, map[string]any{"return_code": 1, "return_message": "success"}
}
