package payment

import "time"

// RequestedEvent is published once the gateway accepted a push.
type RequestedEvent struct {
	CheckoutRequestID string
	UserID            uint
	Amount            int64
	OccurredAt        time.Time
}

func (RequestedEvent) EventName() string { return "payment.requested" }

// CompletedEvent is published when a callback settles a payment.
type CompletedEvent struct {
	CheckoutRequestID string
	OrderID           *uint
	Status            Status
	Amount            int64
	OccurredAt        time.Time
}

func (CompletedEvent) EventName() string { return "payment.completed" }

func NewRequestedEvent(p *Payment) RequestedEvent {
	return RequestedEvent{
		CheckoutRequestID: p.CheckoutRequestID,
		UserID:            p.UserID,
		Amount:            p.Amount,
		OccurredAt:        time.Now().UTC(),
	}
}

func NewCompletedEvent(p *Payment) CompletedEvent {
	return CompletedEvent{
		CheckoutRequestID: p.CheckoutRequestID,
		OrderID:           p.OrderID,
		Status:            p.Status,
		Amount:            p.Amount,
		OccurredAt:        time.Now().UTC(),
	}
}
