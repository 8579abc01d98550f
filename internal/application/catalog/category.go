package catalog

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const catalogService = "catalog-service"

const (
	useCaseCategoryCreate = "catalog.category.create"
	useCaseCategoryUpdate = "catalog.category.update"
	useCaseCategoryDelete = "catalog.category.delete"
	useCaseCategoryGet    = "catalog.category.get"
	useCaseCategoryList   = "catalog.category.list"
)

// CategoryService groups the category use cases; they share one repository
// and the product cache, whose entries embed category details.
type CategoryService struct {
	repo     domain.CategoryRepository
	cache    ProductCache
	pageSize int
	inst     *application.Instrument
}

func NewCategoryService(repo domain.CategoryRepository, cache ProductCache, tel observability.Observability) *CategoryService {
	if cache == nil {
		cache = NoCache{}
	}
	return &CategoryService{
		repo:     repo,
		cache:    cache,
		pageSize: paging.DefaultSize,
		inst:     application.NewInstrument(tel, catalogService),
	}
}

type CategoryInput struct {
	Name string
	Slug string
}

func (s *CategoryService) Create(ctx context.Context, cmd CategoryInput) (_ *domain.Category, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCategoryCreate, "CreateCategory")
	defer func() { run.End(err) }()

	c := &domain.Category{Name: cmd.Name, Slug: cmd.Slug}
	if err := s.validate(ctx, c); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Field("category_id", c.ID)
	return c, nil
}

// CategoryPatch carries an update. Nil fields keep their current value; a full
// update (Partial false) requires every field.
type CategoryPatch struct {
	ID      uint
	Partial bool
	Name    *string
	Slug    *string
}

func (s *CategoryService) Update(ctx context.Context, cmd CategoryPatch) (_ *domain.Category, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCategoryUpdate, "UpdateCategory",
		attribute.Int64("category.id", int64(cmd.ID)),
	)
	defer func() { run.End(err) }()

	if !cmd.Partial {
		errs := validation.Errors{}
		if cmd.Name == nil {
			errs.Add("name", "This field is required.")
		}
		if cmd.Slug == nil {
			errs.Add("slug", "This field is required.")
		}
		if err := errs.Err(); err != nil {
			run.Fail("VALIDATION_FAILED")
			return nil, err
		}
	}

	c, err := s.repo.Get(ctx, cmd.ID)
	if err != nil {
		run.Fail("CATEGORY_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if cmd.Name != nil {
		c.Name = *cmd.Name
	}
	if cmd.Slug != nil {
		c.Slug = *cmd.Slug
	}
	if err := s.validate(ctx, c); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	s.invalidate(ctx, run)
	return c, nil
}

// Delete removes the category together with its products.
func (s *CategoryService) Delete(ctx context.Context, id uint) (err error) {
	ctx, run := s.inst.Start(ctx, useCaseCategoryDelete, "DeleteCategory",
		attribute.Int64("category.id", int64(id)),
	)
	defer func() { run.End(err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		run.Fail("REPO_DELETE_FAILED")
		return wrapRepositoryError(err)
	}
	s.invalidate(ctx, run)
	return nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (_ *domain.Category, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCategoryGet, "GetCategory",
		attribute.Int64("category.id", int64(id)),
	)
	defer func() { run.End(err) }()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		run.Fail("CATEGORY_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return c, nil
}

type CategoryPage struct {
	Categories []domain.Category
	Total      int64
}

func (s *CategoryService) List(ctx context.Context, page int) (_ *CategoryPage, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCategoryList, "ListCategories",
		attribute.Int("page", page),
	)
	defer func() { run.End(err) }()

	list, total, err := s.repo.List(ctx, paging.Page(page, s.pageSize))
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := paging.Check(page, total, s.pageSize); err != nil {
		run.Fail("INVALID_PAGE")
		return nil, err
	}
	return &CategoryPage{Categories: list, Total: total}, nil
}

func (s *CategoryService) validate(ctx context.Context, c *domain.Category) error {
	errs := domain.ValidateCategory(c)
	if len(errs) > 0 {
		return errs
	}
	nameTaken, slugTaken, err := s.repo.Taken(ctx, c.Name, c.Slug, c.ID)
	if err != nil {
		return wrapRepositoryError(err)
	}
	if nameTaken {
		errs.Add("name", "category with this name already exists.")
	}
	if slugTaken {
		errs.Add("slug", "category with this slug already exists.")
	}
	return errs.Err()
}

func (s *CategoryService) invalidate(ctx context.Context, run *application.Run) {
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		run.Logger().Warn("product_cache_invalidate_failed", observability.F("error", err.Error()))
	}
}
