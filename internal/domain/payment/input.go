package payment

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingInput  = errors.New("payment: phone number and amount are required")
	ErrInvalidAmount = errors.New("payment: invalid amount")
	ErrInvalidPhone  = errors.New("payment: invalid phone number")
)

// Fixed push metadata shown to the payer.
const (
	AccountReference = "EcommerceShop"
	TransactionDesc  = "Payment for Order"
)

var msisdnPattern = regexp.MustCompile(`^254\d{9}$`)

// MaxAmount is the largest whole amount a single STK push may request.
const MaxAmount int64 = 250000

// maxAmountLiteral bounds the raw text so exponent forms such as "1e99999999"
// never reach decimal arithmetic.
const maxAmountLiteral = 32

// ParseAmount reads a numeric amount and truncates it toward zero, so "99.9"
// becomes 99. truncated reports whether a fraction was dropped. Amounts below
// one unit after truncation, or above MaxAmount, are rejected.
func ParseAmount(raw string) (amount int64, truncated bool, err error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxAmountLiteral {
		return 0, false, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.Sign() <= 0 {
		return 0, false, ErrInvalidAmount
	}
	// Integer digits come from the coefficient and exponent alone.
	intDigits := len(d.Coefficient().String()) + int(d.Exponent())
	if intDigits < 1 || intDigits > maxAmountDigits {
		return 0, false, ErrInvalidAmount
	}
	whole := d.Truncate(0)
	if whole.GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return 0, false, ErrInvalidAmount
	}
	return whole.IntPart(), !whole.Equal(d), nil
}

var maxAmountDigits = len(strconv.FormatInt(MaxAmount, 10))

// NormalizePhone converts local (07.., 01..) and international (+254..)
// forms to the 2547XXXXXXXX form the gateway expects.
func NormalizePhone(raw string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") {
		p = "254" + p[1:]
	}
	if !msisdnPattern.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}
