package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainkv "github.com/sandai/arena/src/domain/kv"
	"github.com/sandai/arena/src/infra/kv"
)

func stores(t *testing.T) map[string]domainkv.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]domainkv.Store{
		"memory": kv.NewMemoryStore(),
		"redis":  &kv.RedisStore{Client: client},
	}
}

func TestStore_BlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "session:missing")
			assert.True(t, errors.Is(err, domainkv.ErrNotFound))

			ok, err := store.Exists(ctx, "session:1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Put(ctx, "session:1", []byte("first")))
			require.NoError(t, store.Put(ctx, "session:1", []byte("second")))

			blob, err := store.Get(ctx, "session:1")
			require.NoError(t, err)
			assert.Equal(t, "second", string(blob))

			ok, err = store.Exists(ctx, "session:1")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, store.Clear(ctx, "session:1"))
			_, err = store.Get(ctx, "session:1")
			assert.True(t, errors.Is(err, domainkv.ErrNotFound))
		})
	}
}

func TestStore_Sets(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := domainkv.ResponsesKey("t-1")
			members, err := store.Members(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, members)

			require.NoError(t, store.AddToSet(ctx, key, "p1"))
			require.NoError(t, store.AddToSet(ctx, key, "p2"))
			require.NoError(t, store.AddToSet(ctx, key, "p1"))

			members, err = store.Members(ctx, key)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"p1", "p2"}, members)

			require.NoError(t, store.Clear(ctx, key))
			members, err = store.Members(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, members)
		})
	}
}
