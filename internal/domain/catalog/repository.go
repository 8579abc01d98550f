package catalog

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	// Delete removes the category and, through the foreign key, its products.
	Delete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (*Category, error)
	List(ctx context.Context, w paging.Window) ([]Category, int64, error)
	// Taken reports whether name or slug is used by a category other than excludeID.
	Taken(ctx context.Context, name, slug string, excludeID uint) (nameTaken, slugTaken bool, err error)
}

type ProductRepository interface {
	// Create and Update reload the product so Category and timestamps are populated.
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
}

// ProductFilter mirrors the list query: category filter, free-text search over
// name and description, ordering and the page window.
type ProductFilter struct {
	CategoryID *uint
	Search     string
	Ordering   []OrderField
	Window     paging.Window
}

type OrderField struct {
	Field string
	Desc  bool
}

const (
	OrderByPrice     = "price"
	OrderByCreatedAt = "created_at"
)

// ParseOrdering reads a comma separated list like "price,-created_at".
// Unknown fields are dropped.
func ParseOrdering(raw string) []OrderField {
	var out []OrderField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		switch name {
		case OrderByPrice, OrderByCreatedAt:
			out = append(out, OrderField{Field: name, Desc: desc})
		}
	}
	return out
}
