package payment

import (
	"errors"
	"net/http"

	"github.com/phongthuytaman/backend-store/internal/common"
)

// Sentinel errors for the payment flow. Handlers translate them into the
// standard error envelope via AsAppError.
var (
	// ErrInvalidAmount rejects non-positive or unparsable amounts before any
	// gateway work happens.
	ErrInvalidAmount = errors.New("payment: invalid amount")

	// ErrGatewayUnavailable covers outbound failures: network errors,
	// timeouts, non-2xx responses and open circuit breakers.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

	// ErrSignatureMismatch marks a callback whose signature did not verify.
	ErrSignatureMismatch = errors.New("payment: signature mismatch")

	// ErrMalformedCallback marks a callback payload that could not be parsed.
	// Treated the same as a signature mismatch: rejected, nothing mutated.
	ErrMalformedCallback = errors.New("payment: malformed callback")

	// ErrPaymentNotFound reports an unknown order reference.
	ErrPaymentNotFound = errors.New("payment: not found")
)

// AsAppError maps payment sentinels onto the shared error envelope.
func AsAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return common.NewAppError("INVALID_AMOUNT", "amount must be a positive integer", http.StatusBadRequest, err)
	case errors.Is(err, ErrGatewayUnavailable):
		return common.NewAppError("GATEWAY_UNAVAILABLE", "payment gateway unavailable", http.StatusBadGateway, err)
	case errors.Is(err, ErrSignatureMismatch):
		return common.NewAppError("SIGNATURE_MISMATCH", "signature verification failed", http.StatusUnauthorized, err)
	case errors.Is(err, ErrMalformedCallback):
		return common.NewAppError("MALFORMED_CALLBACK", "callback payload could not be parsed", http.StatusBadRequest, err)
	case errors.Is(err, ErrPaymentNotFound):
		return common.NewAppError("PAYMENT_NOT_FOUND", "payment not found", http.StatusNotFound, err)
	default:
		return common.NewAppError("PAYMENT_ERROR", "payment processing failed", http.StatusInternalServerError, err)
	}
}
