package datastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/structdef/pkg/datastore"
)

func runStoreContract(t *testing.T, store datastore.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, datastore.ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", "one"))
	v, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "one", v)

	require.NoError(t, store.Set(ctx, "a", "two"))
	v, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "two", v)

	require.NoError(t, store.Append(ctx, "log", "x"))
	require.NoError(t, store.Append(ctx, "log", "\ny"))
	v, err = store.Get(ctx, "log")
	require.NoError(t, err)
	require.Equal(t, "x\ny", v)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, datastore.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "a"))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, datastore.NewMemoryStore())
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newRedis(t)
	store := datastore.NewFromClient(client)
	defer store.Close()
	runStoreContract(t, store)
}

func TestRedisStore_Options(t *testing.T) {
	mr, client := newRedis(t)
	store := datastore.NewFromClient(client, datastore.WithPrefix("game:"), datastore.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "p1", "v"))
	require.NoError(t, store.Append(ctx, "log", "a"))
	require.True(t, mr.Exists("game:p1"))
	require.Equal(t, time.Minute, mr.TTL("game:p1"))
	require.Equal(t, time.Minute, mr.TTL("game:log"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "p1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	store := datastore.NewRedisStore(addr, "", 0)
	defer store.Close()
	_, err = store.Get(context.Background(), "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, datastore.ErrNotFound)
}
