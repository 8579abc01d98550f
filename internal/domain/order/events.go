package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatedEvent is published after an order and its items are committed.
type CreatedEvent struct {
	OrderID    uint
	UserID     uint
	ItemCount  int
	TotalPrice decimal.Decimal
	OccurredAt time.Time
}

func (CreatedEvent) EventName() string { return "order.created" }

func NewCreatedEvent(o *Order) CreatedEvent {
	return CreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		ItemCount:  len(o.Items),
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}
