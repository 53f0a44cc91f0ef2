package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Status is the consolidated payment status across gateways.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

// CreateRequest captures the information required to open a payment with a gateway.
type CreateRequest struct {
	OrderRef    string
	Amount      int64
	Description string
	ClientIP    string
	ReturnURL   string
	BankCode    string
}

// CreateResponse is the normalised result of opening a payment.
// PayURL is where the client should be sent; Raw preserves the gateway reply.
type CreateResponse struct {
	Gateway  string
	OrderRef string
	PayURL   string
	Raw      []byte
}

// CallbackResult contains the normalised data extracted from a gateway
// notification after signature verification.
type CallbackResult struct {
	Valid           bool
	OrderRef        string
	Amount          int64
	Status          Status
	ProviderPayload []byte
	Err             error
}

// StatusResult is the outcome of querying a gateway for a transaction.
type StatusResult struct {
	Status Status
	Raw    []byte
}

// Gateway abstracts one upstream payment provider. AckCallback returns the
// HTTP status and body the provider's retry logic expects.
type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (CreateResponse, error)
	VerifyCallback(r *http.Request, body []byte) CallbackResult
	QueryStatus(ctx context.Context, orderRef string) (StatusResult, error)
	AckCallback(result CallbackResult) (int, any)
}

func normaliseGatewayKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// readJSON drains the response body and decodes it into v, returning the raw
// bytes either way so callers can persist what the gateway actually sent.
func readJSON(resp *http.Response, v any) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return raw, err
	}
	return raw, nil
}
