package order

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewDefaultsQuantity(t *testing.T) {
	o, err := New(1, dec("10.00"), []Item{{ProductID: 3, Price: dec("10.00")}})
	require.NoError(t, err)
	assert.Equal(t, DefaultQuantity, o.Items[0].Quantity)
	assert.True(t, o.TotalPrice.Equal(dec("10")))
}

func TestNewKeepsCallerTotal(t *testing.T) {
	o, err := New(1, dec("1.00"), []Item{{ProductID: 3, Quantity: 4, Price: dec("10.00")}})
	require.NoError(t, err)
	assert.Equal(t, "1", o.TotalPrice.String())
}

func TestNewCollectsFieldErrors(t *testing.T) {
	_, err := New(1, dec("1.001"), []Item{
		{ProductID: 0, Quantity: -1, Price: dec("1")},
		{ProductID: 2, Quantity: 1, Price: dec("123456789")},
	})
	require.True(t, errors.Is(err, validation.ErrInvalid))

	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "total_price")
	assert.Contains(t, errs, "items[0].product")
	assert.Contains(t, errs, "items[0].quantity")
	assert.Contains(t, errs, "items[1].price")
}

func TestNewRejectsEmptyItems(t *testing.T) {
	_, err := New(1, dec("0"), nil)
	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "items")
}

func TestProductIDsDeduplicates(t *testing.T) {
	o := &Order{Items: []Item{{ProductID: 2}, {ProductID: 5}, {ProductID: 2}}}
	assert.Equal(t, []uint{2, 5}, o.ProductIDs())
}
