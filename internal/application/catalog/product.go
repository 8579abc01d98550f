package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseProductCreate = "catalog.product.create"
	useCaseProductUpdate = "catalog.product.update"
	useCaseProductDelete = "catalog.product.delete"
	useCaseProductGet    = "catalog.product.get"
	useCaseProductList   = "catalog.product.list"
)

const msgInvalidCategory = "Select a valid choice. That choice is not one of the available choices."

type ProductService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	files      FileStore
	cache      ProductCache
	pageSize   int
	inst       *application.Instrument
}

func NewProductService(
	products domain.ProductRepository,
	categories domain.CategoryRepository,
	files FileStore,
	cache ProductCache,
	tel observability.Observability,
) *ProductService {
	if cache == nil {
		cache = NoCache{}
	}
	return &ProductService{
		products:   products,
		categories: categories,
		files:      files,
		cache:      cache,
		pageSize:   paging.DefaultSize,
		inst:       application.NewInstrument(tel, catalogService),
	}
}

// ProductInput carries a create or update. On update nil fields keep their
// current value; a full update (Partial false) requires the scalar fields.
type ProductInput struct {
	Partial     bool
	CategoryID  *uint
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *Upload
	Executable  *Upload
}

func (s *ProductService) Create(ctx context.Context, cmd ProductInput) (_ *domain.Product, err error) {
	ctx, run := s.inst.Start(ctx, useCaseProductCreate, "CreateProduct")
	defer func() { run.End(err) }()

	if errs := requireProductFields(cmd); len(errs) > 0 {
		run.Fail("VALIDATION_FAILED")
		return nil, errs
	}
	p := &domain.Product{}
	cmd.apply(p)
	if err := s.validate(ctx, p, cmd); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	stored, err := s.storeFiles(ctx, p, cmd)
	if err != nil {
		run.Fail("MEDIA_STORE_FAILED")
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		s.removeFiles(ctx, run, stored...)
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Field("product_id", p.ID)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, cmd ProductInput) (_ *domain.Product, err error) {
	ctx, run := s.inst.Start(ctx, useCaseProductUpdate, "UpdateProduct",
		attribute.Int64("product.id", int64(id)),
	)
	defer func() { run.End(err) }()

	if !cmd.Partial {
		if errs := requireProductFields(cmd); len(errs) > 0 {
			run.Fail("VALIDATION_FAILED")
			return nil, errs
		}
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	oldImage, oldExecutable := p.Image, p.ExecutableFile

	cmd.apply(p)
	if err := s.validate(ctx, p, cmd); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}
	stored, err := s.storeFiles(ctx, p, cmd)
	if err != nil {
		run.Fail("MEDIA_STORE_FAILED")
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		s.removeFiles(ctx, run, stored...)
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}

	var replaced []string
	if cmd.Image != nil && oldImage != "" && oldImage != p.Image {
		replaced = append(replaced, oldImage)
	}
	if cmd.Executable != nil && oldExecutable != "" && oldExecutable != p.ExecutableFile {
		replaced = append(replaced, oldExecutable)
	}
	s.removeFiles(ctx, run, replaced...)
	s.invalidate(ctx, run, id)
	return p, nil
}

// Delete fails with ErrProductInUse while order lines reference the product.
func (s *ProductService) Delete(ctx context.Context, id uint) (err error) {
	ctx, run := s.inst.Start(ctx, useCaseProductDelete, "DeleteProduct",
		attribute.Int64("product.id", int64(id)),
	)
	defer func() { run.End(err) }()

	p, err := s.products.Get(ctx, id)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return wrapRepositoryError(err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrProductInUse) {
			run.Fail("PRODUCT_IN_USE")
		} else {
			run.Fail("REPO_DELETE_FAILED")
		}
		return wrapRepositoryError(err)
	}
	s.removeFiles(ctx, run, p.Image, p.ExecutableFile)
	s.invalidate(ctx, run, id)
	return nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (_ *domain.Product, err error) {
	ctx, run := s.inst.Start(ctx, useCaseProductGet, "GetProduct",
		attribute.Int64("product.id", int64(id)),
	)
	defer func() { run.End(err) }()

	p, err := s.cache.GetProduct(ctx, id, func(ctx context.Context) (*domain.Product, error) {
		return s.products.Get(ctx, id)
	})
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return p, nil
}

type ListProductsInput struct {
	// Category is the raw ?category= value; empty means no filter.
	Category string
	Search   string
	Ordering string
	Page     int
}

type ProductPage struct {
	Products []domain.Product
	Total    int64
}

func (s *ProductService) List(ctx context.Context, cmd ListProductsInput) (_ *ProductPage, err error) {
	ctx, run := s.inst.Start(ctx, useCaseProductList, "ListProducts",
		attribute.Int("page", cmd.Page),
		attribute.Bool("search", cmd.Search != ""),
	)
	defer func() { run.End(err) }()

	f := domain.ProductFilter{
		Search:   strings.TrimSpace(cmd.Search),
		Ordering: domain.ParseOrdering(cmd.Ordering),
		Window:   paging.Page(cmd.Page, s.pageSize),
	}
	if raw := strings.TrimSpace(cmd.Category); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			run.Fail("CATEGORY_INVALID")
			return nil, validation.New("category", msgInvalidCategory)
		}
		if _, gerr := s.categories.Get(ctx, uint(id)); gerr != nil {
			if errors.Is(gerr, domain.ErrCategoryNotFound) {
				run.Fail("CATEGORY_INVALID")
				return nil, validation.New("category", msgInvalidCategory)
			}
			run.Fail("CATEGORY_LOOKUP_FAILED")
			return nil, wrapRepositoryError(gerr)
		}
		cid := uint(id)
		f.CategoryID = &cid
	}

	list, total, err := s.products.List(ctx, f)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := paging.Check(cmd.Page, total, s.pageSize); err != nil {
		run.Fail("INVALID_PAGE")
		return nil, err
	}
	run.Field("count", total)
	return &ProductPage{Products: list, Total: total}, nil
}

func (cmd ProductInput) apply(p *domain.Product) {
	if cmd.CategoryID != nil {
		p.CategoryID = *cmd.CategoryID
	}
	if cmd.Name != nil {
		p.Name = *cmd.Name
	}
	if cmd.Description != nil {
		p.Description = *cmd.Description
	}
	if cmd.Price != nil {
		p.Price = *cmd.Price
	}
	if cmd.Stock != nil {
		p.Stock = *cmd.Stock
	}
}

func requireProductFields(cmd ProductInput) validation.Errors {
	errs := validation.Errors{}
	if cmd.CategoryID == nil {
		errs.Add("category", "This field is required.")
	}
	if cmd.Name == nil {
		errs.Add("name", "This field is required.")
	}
	if cmd.Description == nil {
		errs.Add("description", "This field is required.")
	}
	if cmd.Price == nil {
		errs.Add("price", "This field is required.")
	}
	return errs
}

func (s *ProductService) validate(ctx context.Context, p *domain.Product, cmd ProductInput) error {
	errs := domain.ValidateProduct(p)
	if p.Stock < 0 {
		errs.Add("stock", "Ensure this value is greater than or equal to 0.")
	}
	if cmd.Image != nil {
		if msg := domain.ValidateImageType(cmd.Image.ContentType); msg != "" {
			errs.Add("image", msg)
		}
	}
	if cmd.Executable != nil {
		if msg := domain.ValidateExecutableName(cmd.Executable.Filename); msg != "" {
			errs.Add("executable_file", msg)
		}
	}
	if _, ok := errs["category"]; !ok {
		c, err := s.categories.Get(ctx, p.CategoryID)
		switch {
		case errors.Is(err, domain.ErrCategoryNotFound):
			errs.Add("category", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", p.CategoryID))
		case err != nil:
			return wrapRepositoryError(err)
		default:
			p.Category = c
		}
	}
	return errs.Err()
}

// storeFiles saves attached uploads and points p at them. It returns the new
// paths so a failed write can remove them again.
func (s *ProductService) storeFiles(ctx context.Context, p *domain.Product, cmd ProductInput) ([]string, error) {
	var stored []string
	if cmd.Image != nil {
		path, err := s.files.Save(ctx, domain.ImageDir, cmd.Image.Filename, cmd.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		p.Image = path
		stored = append(stored, path)
	}
	if cmd.Executable != nil {
		path, err := s.files.Save(ctx, domain.ExecutableDir, cmd.Executable.Filename, cmd.Executable.Data)
		if err != nil {
			for _, prev := range stored {
				_ = s.files.Delete(ctx, prev)
			}
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		p.ExecutableFile = path
		stored = append(stored, path)
	}
	return stored, nil
}

func (s *ProductService) removeFiles(ctx context.Context, run *application.Run, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := s.files.Delete(ctx, path); err != nil {
			run.Logger().Warn("media_delete_failed",
				observability.F("path", path),
				observability.F("error", err.Error()),
			)
		}
	}
}

func (s *ProductService) invalidate(ctx context.Context, run *application.Run, id uint) {
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		run.Logger().Warn("product_cache_invalidate_failed",
			observability.F("product_id", id),
			observability.F("error", err.Error()),
		)
	}
}
