package balance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/internal/notify"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/pkg/logger"
)

// MockRemoteWallet is a mock implementation of RemoteWallet
type MockRemoteWallet struct {
	mock.Mock
}

func (m *MockRemoteWallet) GetWallet(ctx context.Context) (*bank.Wallet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bank.Wallet), args.Error(1)
}

// recordingNotifier captures published changes along with the cache value
// at publish time, to check the write-before-broadcast ordering.
type recordingNotifier struct {
	notify.Notifier
	cache      localstore.Store
	published  []notify.Change
	cacheAtPub []string
}

func (r *recordingNotifier) Publish(ctx context.Context, change notify.Change) error {
	v, _, _ := r.cache.Get(ctx, change.Key)
	r.published = append(r.published, change)
	r.cacheAtPub = append(r.cacheAtPub, v)
	return r.Notifier.Publish(ctx, change)
}

func testLogger() *logger.Logger {
	return logger.NewDefault("test")
}

func TestStore_RefreshOverwritesCacheAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemoryStore()
	require.NoError(t, cache.Set(ctx, localstore.KeyBalance, "999"))

	remote := new(MockRemoteWallet)
	remote.On("GetWallet", ctx).Return(&bank.Wallet{ID: 7, Balance: 120.5}, nil)

	rec := &recordingNotifier{Notifier: notify.NewMemoryBus(), cache: cache}
	store := balance.NewStore(remote, cache, rec, testLogger())

	value, fresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, 120.5, value)
	assert.Equal(t, int64(7), store.WalletID())

	cached, ok, err := cache.Get(ctx, localstore.KeyBalance)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "120.5", cached, "fresh remote read must overwrite the cache")

	require.Len(t, rec.published, 1, "exactly one broadcast per adopted balance")
	assert.Equal(t, localstore.KeyBalance, rec.published[0].Key)
	assert.Equal(t, "120.5", rec.published[0].NewValue)
	assert.Equal(t, "120.5", rec.cacheAtPub[0], "cache write must precede the broadcast")
}

func TestStore_RefreshFallsBackToCachedValue(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemoryStore()
	require.NoError(t, cache.Set(ctx, localstore.KeyBalance, "75.25"))

	remote := new(MockRemoteWallet)
	remote.On("GetWallet", ctx).Return(nil, errors.New("connection refused"))

	store := balance.NewStore(remote, cache, notify.Noop{}, testLogger())

	value, fresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, fresh, "cached value must be reported as stale")
	assert.Equal(t, 75.25, value)

	current, known := store.Current()
	assert.True(t, known)
	assert.Equal(t, 75.25, current)
}

func TestStore_RefreshFailsWithoutCachedValue(t *testing.T) {
	ctx := context.Background()

	remote := new(MockRemoteWallet)
	remote.On("GetWallet", ctx).Return(nil, errors.New("connection refused"))

	store := balance.NewStore(remote, localstore.NewMemoryStore(), notify.Noop{}, testLogger())

	_, _, err := store.Refresh(ctx)
	assert.Error(t, err)

	_, known := store.Current()
	assert.False(t, known)
}

func TestStore_RefreshFallbackDisabled(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemoryStore()
	require.NoError(t, cache.Set(ctx, localstore.KeyBalance, "75.25"))

	remote := new(MockRemoteWallet)
	remote.On("GetWallet", ctx).Return(nil, errors.New("connection refused"))

	store := balance.NewStore(remote, cache, notify.Noop{}, testLogger(),
		balance.WithCacheFallback(false))

	_, _, err := store.Refresh(ctx)
	assert.Error(t, err, "fallback disabled must surface the remote error")
}

func TestStore_TwoViewsConvergeThroughNotifier(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewMemoryBus()
	cache := localstore.NewMemoryStore()

	remote := new(MockRemoteWallet)

	viewA := balance.NewStore(remote, cache, bus, testLogger())
	viewB := balance.NewStore(remote, cache, bus, testLogger())

	stop, err := viewB.Listen(ctx)
	require.NoError(t, err)
	defer stop()

	updated := make(chan float64, 1)
	viewB.Subscribe(func(v float64) { updated <- v })

	require.NoError(t, viewA.Adopt(ctx, 70))

	select {
	case v := <-updated:
		assert.Equal(t, 70.0, v)
	case <-time.After(2 * time.Second):
		t.Fatal("view B never observed view A's balance change")
	}

	current, known := viewB.Current()
	assert.True(t, known)
	assert.Equal(t, 70.0, current)
}

func TestStore_SubscribeStopsDelivering(t *testing.T) {
	ctx := context.Background()
	store := balance.NewStore(new(MockRemoteWallet), localstore.NewMemoryStore(), notify.Noop{}, testLogger())

	calls := 0
	unsubscribe := store.Subscribe(func(float64) { calls++ })

	require.NoError(t, store.Adopt(ctx, 10))
	unsubscribe()
	require.NoError(t, store.Adopt(ctx, 20))

	assert.Equal(t, 1, calls)
}
