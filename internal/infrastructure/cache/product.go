package cache

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
	"golang.org/x/sync/singleflight"
)

const productCacheName = "product"

// ProductCache is a read-through cache for product detail. Concurrent misses
// for the same id share one load.
type ProductCache struct {
	cache   *Cache
	group   singleflight.Group
	lookups observability.Counter // cache_lookups_total{cache,result}
	log     observability.Logger
}

func NewProductCache(c *Cache, tel observability.Observability) *ProductCache {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ProductCache{
		cache:   c,
		lookups: tel.Metrics().Counter(observability.MCacheLookups),
		log:     tel.Logger().With(observability.F("component", "product_cache")),
	}
}

func productKey(id uint) string { return fmt.Sprintf("product:%d", id) }

// GetProduct returns the cached product or loads, stores and returns it.
// Redis failures degrade to a direct load.
func (pc *ProductCache) GetProduct(ctx context.Context, id uint, load func(context.Context) (*domain.Product, error)) (*domain.Product, error) {
	logger := logctx.FromOr(ctx, pc.log)
	key := productKey(id)

	var cached domain.Product
	found, err := pc.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		pc.count("error")
		logger.Warn("cache_get_failed", observability.F("key", key), observability.F("error", err.Error()))
	case found:
		pc.count("hit")
		return &cached, nil
	default:
		pc.count("miss")
	}

	val, err, _ := pc.group.Do(key, func() (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	p := val.(*domain.Product)

	if err := pc.cache.Set(ctx, key, p); err != nil {
		logger.Warn("cache_set_failed", observability.F("key", key), observability.F("error", err.Error()))
	}
	c := *p
	return &c, nil
}

func (pc *ProductCache) InvalidateProduct(ctx context.Context, id uint) error {
	return pc.cache.Delete(ctx, productKey(id))
}

func (pc *ProductCache) InvalidateProducts(ctx context.Context) error {
	return pc.cache.DeletePattern(ctx, "product:*")
}

func (pc *ProductCache) count(result string) {
	pc.lookups.Add(1,
		observability.L("cache", productCacheName),
		observability.L("result", result),
	)
}
