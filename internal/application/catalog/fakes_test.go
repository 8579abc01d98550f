package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
)

type store struct {
	mu         sync.Mutex
	categories map[uint]domain.Category
	products   map[uint]domain.Product
	inUse      map[uint]bool
	nextCat    uint
	nextProd   uint
}

func newStore() *store {
	return &store{
		categories: map[uint]domain.Category{},
		products:   map[uint]domain.Product{},
		inUse:      map[uint]bool{},
	}
}

type categoryRepo struct{ *store }
type productRepo struct{ *store }

func (r categoryRepo) Create(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCat++
	c.ID = r.nextCat
	r.categories[c.ID] = *c
	return nil
}

func (r categoryRepo) Update(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	r.categories[c.ID] = *c
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.categories, id)
	for pid, p := range r.products {
		if p.CategoryID == id {
			delete(r.products, pid)
		}
	}
	return nil
}

func (r categoryRepo) Get(_ context.Context, id uint) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return &c, nil
}

func (r categoryRepo) List(_ context.Context, w paging.Window) ([]domain.Category, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, w), int64(len(out)), nil
}

func (r categoryRepo) Taken(_ context.Context, name, slug string, excludeID uint) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nameTaken, slugTaken bool
	for _, c := range r.categories {
		if c.ID == excludeID {
			continue
		}
		nameTaken = nameTaken || c.Name == name
		slugTaken = slugTaken || c.Slug == slug
	}
	return nameTaken, slugTaken, nil
}

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextProd++
	p.ID = r.nextProd
	r.products[p.ID] = *p
	return nil
}

func (r productRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r productRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse[id] {
		return domain.ErrProductInUse
	}
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r productRepo) Get(_ context.Context, id uint) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r productRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.products {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if q := strings.ToLower(f.Search); q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, f.Window), int64(len(out)), nil
}

func window[T any](items []T, w paging.Window) []T {
	if w.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if w.Limit > 0 && w.Offset+w.Limit < end {
		end = w.Offset + w.Limit
	}
	return items[w.Offset:end]
}

type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (m *memFiles) Save(_ context.Context, dir, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := dir + "/" + name
	for i := 1; ; i++ {
		if _, taken := m.files[path]; !taken {
			break
		}
		path = fmt.Sprintf("%s/%d_%s", dir, i, name)
	}
	m.files[path] = data
	return path, nil
}

func (m *memFiles) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

type countingCache struct {
	mu          sync.Mutex
	entries     map[uint]*domain.Product
	loads       int
	invalidated int
}

func newCountingCache() *countingCache { return &countingCache{entries: map[uint]*domain.Product{}} }

func (c *countingCache) GetProduct(ctx context.Context, id uint, load func(context.Context) (*domain.Product, error)) (*domain.Product, error) {
	c.mu.Lock()
	if p, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()
	p, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.loads++
	c.entries[id] = p
	c.mu.Unlock()
	return p, nil
}

func (c *countingCache) InvalidateProduct(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	delete(c.entries, id)
	return nil
}

func (c *countingCache) InvalidateProducts(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = map[uint]*domain.Product{}
	return nil
}
