package localstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakecombank/teller/internal/localstore"
)

func storesUnderTest(t *testing.T) map[string]localstore.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]localstore.Store{
		"redis":  localstore.NewRedisStore(client),
		"memory": localstore.NewMemoryStore(),
	}
}

func TestStore_GetAbsent(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx, localstore.KeyBalance)
			require.NoError(t, err)
			assert.False(t, ok, "never-written slot must read as absent")
		})
	}
}

func TestStore_SetOverwritesAndGetReturnsLatest(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, localstore.KeyBalance, "100"))
			require.NoError(t, store.Set(ctx, localstore.KeyBalance, "250.5"))

			val, ok, err := store.Get(ctx, localstore.KeyBalance)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "250.5", val)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, localstore.KeyToken, "abc"))
			require.NoError(t, store.Delete(ctx, localstore.KeyToken))

			_, ok, err := store.Get(ctx, localstore.KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRedisStore_SlotsAreSharedBetweenClients(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientB.Close()

	viewA := localstore.NewRedisStore(clientA)
	viewB := localstore.NewRedisStore(clientB)

	require.NoError(t, viewA.Set(ctx, localstore.KeyBalance, "70"))

	val, ok, err := viewB.Get(ctx, localstore.KeyBalance)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "70", val)
}
