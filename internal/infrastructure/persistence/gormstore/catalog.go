package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	m := categoryModel{Name: c.Name, Slug: c.Slug}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	c.ID = m.ID
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	result := r.db.WithContext(ctx).Model(&categoryModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{"name": c.Name, "slug": c.Slug})
	if err := result.Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&categoryModel{}, id)
	if err := result.Error; err != nil {
		if isForeignKey(err) {
			return domain.ErrProductInUse
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id uint) (*domain.Category, error) {
	var m categoryModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	c := m.toDomain()
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context, w paging.Window) ([]domain.Category, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&categoryModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}
	var rows []categoryModel
	if err := r.db.WithContext(ctx).Order("id").Offset(w.Offset).Limit(w.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, total, nil
}

func (r *CategoryRepository) Taken(ctx context.Context, name, slug string, excludeID uint) (bool, bool, error) {
	var rows []categoryModel
	err := r.db.WithContext(ctx).
		Where("(name = ? OR slug = ?) AND id <> ?", name, slug, excludeID).
		Find(&rows).Error
	if err != nil {
		return false, false, fmt.Errorf("check category uniqueness: %w", err)
	}
	var nameTaken, slugTaken bool
	for _, m := range rows {
		nameTaken = nameTaken || m.Name == name
		slugTaken = slugTaken || m.Slug == slug
	}
	return nameTaken, slugTaken, nil
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	m := productFromDomain(p)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		if isForeignKey(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("create product: %w", err)
	}
	return r.reload(ctx, m.ID, p)
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	m := productFromDomain(p)
	m.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&productModel{ID: p.ID}).
		Select("category_id", "name", "description", "price", "stock", "image", "executable_file", "updated_at").
		Omit(clause.Associations).
		Updates(&m)
	if err := result.Error; err != nil {
		if isForeignKey(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return r.reload(ctx, p.ID, p)
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&productModel{}, id)
	if err := result.Error; err != nil {
		if isForeignKey(err) {
			return domain.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var m productModel
	if err := r.db.WithContext(ctx).Preload("Category").First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := m.toDomain()
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	filtered := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&productModel{})
		if f.CategoryID != nil {
			db = db.Where("category_id = ?", *f.CategoryID)
		}
		if f.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
			db = db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return db
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	db := filtered()
	for _, o := range f.Ordering {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
	}
	var rows []productModel
	err := db.Order("id").Preload("Category").Offset(f.Window.Offset).Limit(f.Window.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	out := make([]domain.Product, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, total, nil
}

func (r *ProductRepository) reload(ctx context.Context, id uint, into *domain.Product) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*into = *p
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (m categoryModel) toDomain() domain.Category {
	return domain.Category{ID: m.ID, Name: m.Name, Slug: m.Slug}
}

func productFromDomain(p *domain.Product) productModel {
	return productModel{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		Stock:          p.Stock,
		Image:          p.Image,
		ExecutableFile: p.ExecutableFile,
		CreatedAt:      p.CreatedAt,
	}
}

func (m productModel) toDomain() domain.Product {
	p := domain.Product{
		ID:             m.ID,
		CategoryID:     m.CategoryID,
		Name:           m.Name,
		Description:    m.Description,
		Price:          m.Price,
		Stock:          m.Stock,
		Image:          m.Image,
		ExecutableFile: m.ExecutableFile,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Category.ID != 0 {
		c := m.Category.toDomain()
		p.Category = &c
	}
	return p
}
