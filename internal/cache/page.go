// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides a Valkey-backed cache of injected site documents. The
// gateway stores the readonly document it builds for a client so repeat
// visits skip the injection pass. Keys carry the client's updated_at, so an
// edit produces a fresh key and stale entries simply age out.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached pages.
	pageKeyPrefix = "page:"

	// DefaultPageTTL is how long an injected document stays cached.
	DefaultPageTTL = 10 * time.Minute
)

// PageCache manages injected document caching in Valkey.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// SiteKey is the cache key of a client's document at a given revision.
func SiteKey(clientID uuid.UUID, updatedAt time.Time) string {
	return fmt.Sprintf("site:%s:%d", clientID, updatedAt.UnixNano())
}

// Get retrieves a cached document. A Valkey error counts as a miss.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores a document with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidateClient drops every cached revision of a client's site.
func (pc *PageCache) InvalidateClient(ctx context.Context, clientID uuid.UUID) int {
	n := pc.deleteMatching(ctx, pageKeyPrefix+"site:"+clientID.String()+":*")
	slog.Debug("page cache invalidated", "client_id", clientID, "deleted", n)
	return n
}

// InvalidateAll removes all cached pages by scanning for the prefix.
func (pc *PageCache) InvalidateAll(ctx context.Context) int {
	n := pc.deleteMatching(ctx, pageKeyPrefix+"*")
	if n > 0 {
		slog.Info("page cache fully cleared", "deleted", n)
	}
	return n
}

func (pc *PageCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("page cache scan error", "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
			} else {
				deleted += len(keys)
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return deleted
		}
	}
}
