package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestCache needs a Redis at TEST_REDIS_ADDR and skips otherwise.
func setupTestCache(t *testing.T, prefix string) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	c := New(client, prefix, time.Minute)
	require.NoError(t, c.DeletePattern(ctx, "*"))
	t.Cleanup(func() {
		_ = c.DeletePattern(ctx, "*")
		_ = client.Close()
	})
	return c
}

func TestCacheSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := setupTestCache(t, "test:storefront:")

	var out map[string]int
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, c.Delete(ctx, "k"))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := setupTestCache(t, "test:storefront:")

	for _, k := range []string{"product:1", "product:2", "other:1"} {
		require.NoError(t, c.Set(ctx, k, k))
	}
	require.NoError(t, c.DeletePattern(ctx, "product:*"))

	var s string
	found, _ := c.Get(ctx, "product:1", &s)
	assert.False(t, found)
	found, _ = c.Get(ctx, "other:1", &s)
	assert.True(t, found)
}

func TestProductCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	pc := NewProductCache(setupTestCache(t, "test:storefront:"), observability.Nop())

	var loads int32
	load := func(context.Context) (*domain.Product, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(20 * time.Millisecond)
		return &domain.Product{ID: 7, Name: "Lamp", Price: decimal.RequireFromString("12.50"),
			Category: &domain.Category{ID: 1, Name: "Home", Slug: "home"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := pc.GetProduct(ctx, 7, load)
			assert.NoError(t, err)
			assert.Equal(t, "Lamp", p.Name)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	p, err := pc.GetProduct(ctx, 7, load)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "home", p.Category.Slug)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	require.NoError(t, pc.InvalidateProducts(ctx))
	_, err = pc.GetProduct(ctx, 7, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestProductCacheDegradesWithoutRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	pc := NewProductCache(New(client, "x:", time.Minute), observability.Nop())

	p, err := pc.GetProduct(context.Background(), 1, func(context.Context) (*domain.Product, error) {
		return &domain.Product{ID: 1, Name: "Direct"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Direct", p.Name)

	notFound := errors.New("missing")
	_, err = pc.GetProduct(context.Background(), 2, func(context.Context) (*domain.Product, error) {
		return nil, notFound
	})
	assert.ErrorIs(t, err, notFound)
}
