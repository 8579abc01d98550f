package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("payment: not found")
	ErrConflict = errors.New("payment: duplicate checkout request")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Payment records one STK push and, once the gateway calls back, its result.
type Payment struct {
	ID                uint
	UserID            uint
	OrderID           *uint
	PhoneNumber       string
	Amount            int64
	MerchantRequestID string
	CheckoutRequestID string
	Status            Status
	ResultCode        *int
	ResultDesc        string
	ReceiptNumber     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Settled reports whether a callback has already been applied.
func (p *Payment) Settled() bool {
	return p.Status != StatusPending
}

// Apply records a callback result. The gateway uses result code 0 for success.
func (p *Payment) Apply(r CallbackResult) {
	code := r.ResultCode
	p.ResultCode = &code
	p.ResultDesc = r.ResultDesc
	p.ReceiptNumber = r.ReceiptNumber
	if r.ResultCode == 0 {
		p.Status = StatusSuccess
	} else {
		p.Status = StatusFailed
	}
	p.UpdatedAt = time.Now().UTC()
}
