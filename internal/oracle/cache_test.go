package oracle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/popsigner/gas-estimator/internal/database"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, "mainnet")
	require.NoError(t, err)
	assert.False(t, hit)

	price := &models.GasPrice{Network: "mainnet", Slow: 1, Standard: 2, Fast: 3}
	require.NoError(t, cache.Set(ctx, price, time.Minute))

	// Stored values are copies.
	price.Standard = 99

	got, hit, err := cache.Get(ctx, "mainnet")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2.0, got.Standard)

	now = now.Add(time.Minute)
	_, hit, err = cache.Get(ctx, "mainnet")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, cache.Len())
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis tests")
	}
	db := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr}), "gasest-test:")
	if err := db.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	cache := NewRedisCache(db)
	t.Cleanup(func() { _ = db.Delete(ctx, priceKey("mainnet")) })

	price := &models.GasPrice{Network: "mainnet", Slow: 1, Standard: 2, Fast: 3, TimestampMs: 42, Source: models.SourceOracle}
	require.NoError(t, cache.Set(ctx, price, time.Minute))

	got, hit, err := cache.Get(ctx, "mainnet")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, *price, *got)

	_, hit, err = cache.Get(ctx, "sepolia")
	require.NoError(t, err)
	assert.False(t, hit)
}
