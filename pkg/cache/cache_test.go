package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "topic:all", payload{Name: "algorithms", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, store.Get(ctx, "topic:all", &got))
	assert.Equal(t, "algorithms", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestStoreGetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	var got payload
	err := store.Get(context.Background(), "nope", &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStoreGetExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "topic:all", payload{Name: "x"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got payload
	assert.ErrorIs(t, store.Get(ctx, "topic:all", &got), ErrMiss)
}

func TestStoreDeleteByPrefix(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "topic:a", payload{}, time.Minute))
	require.NoError(t, store.Set(ctx, "topic:b", payload{}, time.Minute))
	require.NoError(t, store.Set(ctx, "report:a", payload{}, time.Minute))

	require.NoError(t, store.DeleteByPrefix(ctx, "topic"))

	var got payload
	assert.ErrorIs(t, store.Get(ctx, "topic:a", &got), ErrMiss)
	assert.ErrorIs(t, store.Get(ctx, "topic:b", &got), ErrMiss)
	assert.NoError(t, store.Get(ctx, "report:a", &got))
}
