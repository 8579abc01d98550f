package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	// Settle writes the callback outcome only while the stored row is still
	// pending. applied is false when another callback settled it first.
	Settle(ctx context.Context, p *Payment) (applied bool, err error)
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*Payment, error)
	GetForUser(ctx context.Context, userID uint, checkoutRequestID string) (*Payment, error)
}
