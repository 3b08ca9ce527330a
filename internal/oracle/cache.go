package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bidon15/popsigner/gas-estimator/internal/database"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// PriceCache stores successful gas price lookups per network.
type PriceCache interface {
	Get(ctx context.Context, network string) (*models.GasPrice, bool, error)
	Set(ctx context.Context, price *models.GasPrice, ttl time.Duration) error
}

type memoryEntry struct {
	price     models.GasPrice
	expiresAt time.Time
}

// MemoryCache is a process-local PriceCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory price cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached price if it has not expired.
func (c *MemoryCache) Get(_ context.Context, network string) (*models.GasPrice, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[network]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[network]; ok && current.expiresAt == entry.expiresAt {
			delete(c.entries, network)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	price := entry.price
	return &price, true, nil
}

// Set stores a copy of price until ttl elapses.
func (c *MemoryCache) Set(_ context.Context, price *models.GasPrice, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[price.Network] = memoryEntry{price: *price, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares gas prices between processes through Redis.
type RedisCache struct {
	db *database.Redis
}

// NewRedisCache creates a PriceCache backed by db.
func NewRedisCache(db *database.Redis) *RedisCache {
	return &RedisCache{db: db}
}

func priceKey(network string) string {
	return "gas_price:" + network
}

// Get returns the cached price, if any.
func (c *RedisCache) Get(ctx context.Context, network string) (*models.GasPrice, bool, error) {
	raw, err := c.db.Get(ctx, priceKey(network))
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var price models.GasPrice
	if err := json.Unmarshal([]byte(raw), &price); err != nil {
		return nil, false, fmt.Errorf("decode cached price: %w", err)
	}
	return &price, true, nil
}

// Set stores price with the given TTL.
func (c *RedisCache) Set(ctx context.Context, price *models.GasPrice, ttl time.Duration) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}
	if err := c.db.Set(ctx, priceKey(price.Network), data, ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
