package payment

import (
	"context"
	"sync"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
)

type fakeOrders map[uint]*domorder.Order

func (f fakeOrders) GetForUser(_ context.Context, userID, id uint) (*domorder.Order, error) {
	o, ok := f[id]
	if !ok || o.UserID != userID {
		return nil, domorder.ErrNotFound
	}
	return o.Clone(), nil
}

// fakePaymentRepository is keyed by checkout request id and hands out copies.
type fakePaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
	nextID   uint

	// beforeSettle runs without the lock held, ahead of each Settle.
	beforeSettle func()
}

func newFakePaymentRepository() *fakePaymentRepository {
	return &fakePaymentRepository{payments: make(map[string]*domain.Payment)}
}

func (r *fakePaymentRepository) Create(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.CheckoutRequestID]; exists {
		return domain.ErrConflict
	}
	r.nextID++
	p.ID = r.nextID
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.payments[p.CheckoutRequestID] = clonePayment(p)
	return nil
}

func (r *fakePaymentRepository) Settle(_ context.Context, p *domain.Payment) (bool, error) {
	if hook := r.beforeSettle; hook != nil {
		r.beforeSettle = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[p.CheckoutRequestID]
	if !ok || stored.Status != domain.StatusPending {
		return false, nil
	}
	r.payments[p.CheckoutRequestID] = clonePayment(p)
	return true, nil
}

func (r *fakePaymentRepository) GetByCheckoutID(_ context.Context, checkoutRequestID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[checkoutRequestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *fakePaymentRepository) GetForUser(ctx context.Context, userID uint, checkoutRequestID string) (*domain.Payment, error) {
	p, err := r.GetByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.OrderID != nil {
		id := *p.OrderID
		c.OrderID = &id
	}
	if p.ResultCode != nil {
		code := *p.ResultCode
		c.ResultCode = &code
	}
	return &c
}
