package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/order-desk/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), "seller-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SetGetKeepsExactPrices(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	price, err := decimal.NewFromString("12500.50")
	require.NoError(t, err)
	c := &Cart{
		SellerID: "seller-1",
		Lines: []domain.CartLine{
			{ProductID: "p-1", VariantID: "xl", Quantity: 2, UnitPrice: price},
		},
	}
	require.NoError(t, cache.Set(ctx, "seller-1", c))

	assert.True(t, mr.Exists("order-desk:cart:seller-1"))
	ttl := mr.TTL("order-desk:cart:seller-1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	got, err := cache.Get(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].UnitPrice.Equal(price))
	assert.Equal(t, "xl", got.Lines[0].VariantID)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "seller-1", &Cart{SellerID: "seller-1"}))
	require.NoError(t, cache.Delete(ctx, "seller-1"))
	assert.False(t, mr.Exists("order-desk:cart:seller-1"))
	require.NoError(t, cache.Delete(ctx, "seller-1"))
}

func TestRedisCache_CorruptValue(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("order-desk:cart:seller-1", "{not json"))

	_, err := cache.Get(context.Background(), "seller-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
