package order

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
)

// fakeOrderRepository keeps orders in a map. Only the product ids passed to
// newFakeOrderRepository exist.
type fakeOrderRepository struct {
	mu       sync.Mutex
	orders   map[uint]*domain.Order
	products map[uint]bool
	nextID   uint
	nextItem uint
}

func newFakeOrderRepository(productIDs ...uint) *fakeOrderRepository {
	r := &fakeOrderRepository{
		orders:   make(map[uint]*domain.Order),
		products: make(map[uint]bool),
	}
	for _, id := range productIDs {
		r.products[id] = true
	}
	return r
}

func (r *fakeOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range o.Items {
		if !r.products[it.ProductID] {
			return domain.ErrUnknownProduct
		}
	}
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	for i := range o.Items {
		r.nextItem++
		o.Items[i].ID = r.nextItem
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *fakeOrderRepository) ListByUser(_ context.Context, userID uint, w paging.Window) ([]domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make([]domain.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			owned = append(owned, *o.Clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	total := int64(len(owned))
	if w.Offset >= len(owned) {
		return []domain.Order{}, total, nil
	}
	end := len(owned)
	if w.Limit > 0 && w.Offset+w.Limit < end {
		end = w.Offset + w.Limit
	}
	return owned[w.Offset:end], total, nil
}

func (r *fakeOrderRepository) GetForUser(_ context.Context, userID, id uint) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *fakeOrderRepository) ExistingProducts(_ context.Context, ids []uint) (map[uint]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if r.products[id] {
			found[id] = true
		}
	}
	return found, nil
}
