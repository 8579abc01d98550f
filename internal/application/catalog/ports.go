package catalog

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
)

// FileStore persists uploaded media. Save returns the media-relative path it
// actually used, which may differ from name on collision.
type FileStore interface {
	Save(ctx context.Context, dir, name string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// ProductCache is a read-through cache for product detail lookups.
type ProductCache interface {
	GetProduct(ctx context.Context, id uint, load func(context.Context) (*domain.Product, error)) (*domain.Product, error)
	InvalidateProduct(ctx context.Context, id uint) error
	// InvalidateProducts drops every cached product, used when category data
	// embedded in them changes.
	InvalidateProducts(ctx context.Context) error
}

// NoCache loads straight from storage.
type NoCache struct{}

func (NoCache) GetProduct(ctx context.Context, _ uint, load func(context.Context) (*domain.Product, error)) (*domain.Product, error) {
	return load(ctx)
}
func (NoCache) InvalidateProduct(context.Context, uint) error { return nil }
func (NoCache) InvalidateProducts(context.Context) error      { return nil }

// Upload is a file attached to a product write. ContentType is the sniffed type.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
