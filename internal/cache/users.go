package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
)

// UserCache is a read-through cache of user summaries. It never holds graph
// edges. Profile writes call Invalidate before returning. A nil *UserCache
// is valid and caches nothing.
type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	if rdb == nil {
		return nil
	}
	return &UserCache{rdb: rdb, ttl: ttl}
}

func userKey(id uuid.UUID) string {
	return "user:summary:" + id.String()
}

// GetMany returns the cached summaries and the ids that missed.
func (c *UserCache) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]dto.UserSummary, []uuid.UUID) {
	found := make(map[uuid.UUID]dto.UserSummary, len(ids))
	if c == nil || len(ids) == 0 {
		return found, ids
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("user cache read failed", "error", err)
		return found, ids
	}

	missing := make([]uuid.UUID, 0, len(ids))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var u dto.UserSummary
		if err := json.Unmarshal([]byte(str), &u); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = u
	}
	return found, missing
}

func (c *UserCache) SetMany(ctx context.Context, users []dto.UserSummary) {
	if c == nil || len(users) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, u := range users {
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		pipe.Set(ctx, userKey(u.ID), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("user cache write failed", "error", err)
	}
}

// Invalidate drops the cached summary of one user. The error is returned so
// profile writes can fail loudly instead of serving a stale username.
func (c *UserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, userKey(id)).Err()
}
