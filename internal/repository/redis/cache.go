package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	intelCachePrefix = keyPrefix + "intel:"
	defaultIntelTTL  = 6 * time.Hour
)

// IntelCache stores market intel snippets in Redis
type IntelCache struct {
	client *Client
	ttl    time.Duration
}

// NewIntelCache creates a new intel cache
func NewIntelCache(client *Client, ttl time.Duration) *IntelCache {
	if ttl <= 0 {
		ttl = defaultIntelTTL
	}
	return &IntelCache{client: client, ttl: ttl}
}

// IntelKey derives the cache key for a search query
func IntelKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return intelCachePrefix + hex.EncodeToString(sum[:16])
}

// Get retrieves cached snippets for a query
func (c *IntelCache) Get(ctx context.Context, query string) ([]string, bool, error) {
	data, err := c.client.rdb.Get(ctx, IntelKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read intel cache: %w", err)
	}

	var snippets []string
	if err := json.Unmarshal(data, &snippets); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal intel: %w", err)
	}

	return snippets, true, nil
}

// Set caches snippets for a query
func (c *IntelCache) Set(ctx context.Context, query string, snippets []string) error {
	data, err := json.Marshal(snippets)
	if err != nil {
		return fmt.Errorf("failed to marshal intel: %w", err)
	}

	return c.client.rdb.Set(ctx, IntelKey(query), data, c.ttl).Err()
}

// Invalidate removes cached snippets for a query
func (c *IntelCache) Invalidate(ctx context.Context, query string) error {
	return c.client.rdb.Del(ctx, IntelKey(query)).Err()
}

// FlushAll removes all cached intel
func (c *IntelCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := intelCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
