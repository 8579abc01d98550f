package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// Acknowledgement is the body Daraja expects back from the callback URL.
type Acknowledgement struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var Accepted = Acknowledgement{ResultCode: 0, ResultDesc: "Accepted"}

var ErrMalformedCallback = errors.New("mpesa: malformed callback")

type callbackEnvelope struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// DecodeCallback parses an STK callback body. Metadata values arrive as
// numbers or strings depending on the field.
func DecodeCallback(body []byte) (domain.CallbackResult, error) {
	var env callbackEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return domain.CallbackResult{}, fmt.Errorf("%w: %w", ErrMalformedCallback, err)
	}
	cb := env.Body.StkCallback
	if cb == nil {
		return domain.CallbackResult{}, fmt.Errorf("%w: missing stkCallback", ErrMalformedCallback)
	}

	res := domain.CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		v := rawValue(item.Value)
		switch item.Name {
		case "Amount":
			if d, err := decimal.NewFromString(v); err == nil {
				res.Amount = d
			}
		case "MpesaReceiptNumber":
			res.ReceiptNumber = v
		case "PhoneNumber":
			res.PhoneNumber = v
		case "TransactionDate":
			res.TransactionDate = v
		}
	}
	return res, nil
}

func rawValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
