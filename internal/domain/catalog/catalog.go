package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCategoryNotFound = errors.New("catalog: category not found")
	ErrProductNotFound  = errors.New("catalog: product not found")
	ErrDuplicate        = errors.New("catalog: duplicate value")
	ErrProductInUse     = errors.New("catalog: product is referenced by existing orders")
)

type Category struct {
	ID   uint
	Name string
	Slug string
}

type Product struct {
	ID          uint
	CategoryID  uint
	Category    *Category
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	// Image and ExecutableFile are media-relative paths, empty when unset.
	Image          string
	ExecutableFile string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Upload directories under the media root.
const (
	ImageDir      = "products"
	ExecutableDir = "product_files"
)
