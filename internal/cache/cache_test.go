package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestUserCacheReadThrough(t *testing.T) {
	mr, client := newRedis(t)
	c := NewUserCache(client, time.Minute)
	ctx := context.Background()

	alice := dto.UserSummary{ID: uuid.New(), Username: "alice"}
	bob := dto.UserSummary{ID: uuid.New(), Username: "bob"}

	found, missing := c.GetMany(ctx, []uuid.UUID{alice.ID, bob.ID})
	assert.Empty(t, found)
	assert.Len(t, missing, 2)

	c.SetMany(ctx, []dto.UserSummary{alice})
	found, missing = c.GetMany(ctx, []uuid.UUID{alice.ID, bob.ID})
	assert.Equal(t, "alice", found[alice.ID].Username)
	assert.Equal(t, []uuid.UUID{bob.ID}, missing)

	require.NoError(t, c.Invalidate(ctx, alice.ID))
	_, missing = c.GetMany(ctx, []uuid.UUID{alice.ID})
	assert.Equal(t, []uuid.UUID{alice.ID}, missing)

	c.SetMany(ctx, []dto.UserSummary{bob})
	mr.FastForward(2 * time.Minute)
	_, missing = c.GetMany(ctx, []uuid.UUID{bob.ID})
	assert.Len(t, missing, 1)
}

func TestNilUserCacheIsNoop(t *testing.T) {
	var c *UserCache
	ctx := context.Background()
	id := uuid.New()
	c.SetMany(ctx, []dto.UserSummary{{ID: id}})
	found, missing := c.GetMany(ctx, []uuid.UUID{id})
	assert.Empty(t, found)
	assert.Equal(t, []uuid.UUID{id}, missing)
	assert.NoError(t, c.Invalidate(ctx, id))
	assert.Nil(t, NewUserCache(nil, time.Minute))
}

func TestLimiterStorage(t *testing.T) {
	_, client := newRedis(t)
	s := NewLimiterStorage(client, "limiter:")

	val, err := s.Get("1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("1.2.3.4", []byte("3"), time.Minute))
	require.NoError(t, s.Set("5.6.7.8", []byte("1"), time.Minute))
	val, err = s.Get("1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)

	require.NoError(t, s.Delete("1.2.3.4"))
	val, _ = s.Get("1.2.3.4")
	assert.Nil(t, val)

	require.NoError(t, client.Set(context.Background(), "other", "keep", 0).Err())
	require.NoError(t, s.Reset())
	val, _ = s.Get("5.6.7.8")
	assert.Nil(t, val)
	assert.Equal(t, "keep", client.Get(context.Background(), "other").Val())
}
