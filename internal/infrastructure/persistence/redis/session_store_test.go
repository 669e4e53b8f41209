package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack/internal/application/session"
)

func TestSessionStore_Keys(t *testing.T) {
	s := NewSessionStore(nil, "", 0)
	assert.Equal(t, "session:default:token", s.key(fieldToken))
	assert.Equal(t, TTLSessionData, s.ttl)
	assert.Len(t, s.keys(), len(sessionFields))

	s = NewSessionStore(nil, "laptop", time.Hour)
	assert.Equal(t, "session:laptop:user_id", s.key(fieldUserID))
}

// newTestCache connects to REDIS_TEST_ADDR or skips.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewCacheFromClient(client)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	store := NewSessionStore(cache, "test-"+time.Now().Format("150405.000"), time.Minute)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := session.Session{Token: "tok", UserID: "u1", UserName: "Ana", UserEmail: "ana@school.edu", Role: "student"}
	require.NoError(t, store.Save(ctx, want))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, cache.Client().Set(ctx, store.key("extra"), "x", time.Minute).Err())
	require.NoError(t, store.Clear(ctx))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	n, err := cache.Client().Exists(ctx, store.key("extra")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
