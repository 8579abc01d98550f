package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
)

type Repository interface {
	// Create stores the order and every item in one transaction. On success
	// the order and its items carry their generated ids and CreatedAt.
	Create(ctx context.Context, o *Order) error
	// ListByUser and GetForUser only ever see rows owned by userID.
	ListByUser(ctx context.Context, userID uint, w paging.Window) ([]Order, int64, error)
	GetForUser(ctx context.Context, userID, id uint) (*Order, error)
	// ExistingProducts returns the subset of ids that exist in the catalog.
	ExistingProducts(ctx context.Context, ids []uint) (map[uint]bool, error)
}
