package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"biblio/internal/model"
)

// availabilityTTL bounds staleness if an invalidation is ever lost.
const availabilityTTL = time.Minute

// AvailabilityCache is a read-through cache for book availability lookups.
// The transactional store stays the sole authority: issue/return delete the
// key after commit and never read from here. A nil cache disables caching,
// which the integration tests use.
type AvailabilityCache struct {
	rdb *redis.Client
}

func NewAvailabilityCache(rdb *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb}
}

func availabilityKey(bookID int64) string {
	return fmt.Sprintf("avail:%d", bookID)
}

func (c *AvailabilityCache) Get(ctx context.Context, bookID int64) (*model.Availability, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, availabilityKey(bookID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache: availability read failed", "book_id", bookID, "error", err)
		}
		return nil, false
	}
	var av model.Availability
	if err := json.Unmarshal(data, &av); err != nil {
		slog.Warn("cache: bad availability payload", "book_id", bookID, "error", err)
		return nil, false
	}
	return &av, true
}

func (c *AvailabilityCache) Set(ctx context.Context, av *model.Availability) {
	if c == nil {
		return
	}
	data, err := json.Marshal(av)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, availabilityKey(av.BookID), data, availabilityTTL).Err(); err != nil {
		slog.Warn("cache: availability write failed", "book_id", av.BookID, "error", err)
	}
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, bookID int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, availabilityKey(bookID)).Err(); err != nil {
		slog.Warn("cache: availability invalidation failed", "book_id", bookID, "error", err)
	}
}
