package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// HistoryCache caches serialized irrigation history pages per owner. A
// per-owner dirty marker is set on every write; reads bypass the cache while
// the marker lives, so a page cached mid-write never outlives the marker TTL.
type HistoryCache struct {
	client         *redisv9.Client
	pageTTL        time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, pageTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if pageTTL <= 0 {
		pageTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		pageTTL:        pageTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

// GetPage returns the cached page payload; the second return reports a hit.
func (c *HistoryCache) GetPage(ctx context.Context, userID uint, page, limit int, out interface{}) (bool, error) {
	key := c.pageKey(userID, page, limit)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get history page failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal cached history page failed: %w", err)
	}
	return true, nil
}

func (c *HistoryCache) SetPage(ctx context.Context, userID uint, page, limit int, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal history page failed: %w", err)
	}
	key := c.pageKey(userID, page, limit)
	if err := c.client.Set(ctx, key, raw, c.pageTTL).Err(); err != nil {
		return fmt.Errorf("redis set history page failed: %w", err)
	}
	return nil
}

// DeletePages drops every cached page for the owner so the next read rebuilds
// from the database. Called on every write alongside MarkDirty: the marker
// covers the write-in-flight window, deletion covers pages cached before it.
func (c *HistoryCache) DeletePages(ctx context.Context, userID uint) error {
	pattern := fmt.Sprintf("irrigation:history:%d:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan history pages failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete history pages failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, userID uint) error {
	key := c.dirtyKey(userID)
	if err := c.client.Set(ctx, key, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	key := c.dirtyKey(userID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *HistoryCache) pageKey(userID uint, page, limit int) string {
	return fmt.Sprintf("irrigation:history:%d:%d:%d", userID, page, limit)
}

func (c *HistoryCache) dirtyKey(userID uint) string {
	return fmt.Sprintf("irrigation:history:dirty:%d", userID)
}
