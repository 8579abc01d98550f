package catalog

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
)

var (
	ErrCategoryNotFound = domain.ErrCategoryNotFound
	ErrProductNotFound  = domain.ErrProductNotFound
	ErrRepository       = errors.New("catalog: repository failure")
	ErrStorage          = errors.New("catalog: media storage failure")
)

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrProductInUse),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
