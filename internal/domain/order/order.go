package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("order: not found")
	ErrUnknownProduct = errors.New("order: unknown product")
)

// DefaultQuantity applies when a line omits quantity.
const DefaultQuantity = 1

// Order is immutable once stored. TotalPrice is the caller-supplied figure
// captured at checkout and is never recomputed from Items.
type Order struct {
	ID         uint
	UserID     uint
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	Items      []Item
}

// Item is one order line. Price is the unit price snapshot at order time.
type Item struct {
	ID        uint
	OrderID   uint
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

// New validates the checkout payload and builds an unsaved order.
func New(userID uint, total decimal.Decimal, items []Item) (*Order, error) {
	errs := validation.Errors{}
	if userID == 0 {
		errs.Add("user", "This field is required.")
	}
	if msg := money.Check(total); msg != "" {
		errs.Add("total_price", msg)
	}
	if len(items) == 0 {
		errs.Add("items", "An order needs at least one item.")
	}

	lines := make([]Item, len(items))
	for i, it := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.ProductID == 0 {
			errs.Add(prefix+".product", "This field is required.")
		}
		if it.Quantity == 0 {
			it.Quantity = DefaultQuantity
		}
		if it.Quantity < 0 {
			errs.Add(prefix+".quantity", "Ensure this value is greater than or equal to 1.")
		}
		if msg := money.Check(it.Price); msg != "" {
			errs.Add(prefix+".price", msg)
		}
		it.ID, it.OrderID = 0, 0
		lines[i] = it
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return &Order{
		UserID:     userID,
		TotalPrice: total,
		Items:      lines,
	}, nil
}

// ProductIDs returns the distinct product ids referenced by the order lines.
func (o *Order) ProductIDs() []uint {
	seen := make(map[uint]struct{}, len(o.Items))
	ids := make([]uint, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	return &c
}
