package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayUnavailable covers transport failures and 5xx answers.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrGatewayRejected covers requests the gateway refused (4xx, auth).
	ErrGatewayRejected = errors.New("payment: gateway rejected request")
)

// Gateway is the outbound capability for mobile-money pushes.
type Gateway interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

type STKPushRequest struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	TransactionDesc  string
	CallbackURL      string
}

type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
	// Raw is the gateway body, relayed to the caller untouched.
	Raw json.RawMessage
}

// Accepted reports whether the gateway queued the push ("0" response code).
func (r *STKPushResponse) Accepted() bool {
	return r != nil && r.ResponseCode == "0"
}

// GatewayError carries the gateway's own error code and message.
type GatewayError struct {
	Kind       error
	HTTPStatus int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%v: status %d: %s %s", e.Kind, e.HTTPStatus, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Kind }

// CallbackResult is the decoded asynchronous notification for one push.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	ReceiptNumber     string
	PhoneNumber       string
	TransactionDate   string
}
