package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"10.00", false},
		{"0", false},
		{"99999999.99", false},
		{"-5.5", false},
		{"10.001", true},
		{"123456789", true},
		{"12345678901", true},
		{"0.000", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			msg := Check(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.NotEmpty(t, msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "10.00", Format(decimal.RequireFromString("10")))
	assert.Equal(t, "9.90", Format(decimal.RequireFromString("9.9")))
}
