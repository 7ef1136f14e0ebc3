// Package balance owns the client's view of the wallet balance. Exactly one
// Store exists per view; every module mutates or reads the balance through
// it instead of through ambient globals, and other views learn about
// changes via the notifier.
package balance

import (
	"context"
	"strconv"
	"sync"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/internal/notify"
	"github.com/fakecombank/teller/pkg/logger"
)

// RemoteWallet is the slice of the wallet service the store needs.
type RemoteWallet interface {
	GetWallet(ctx context.Context) (*bank.Wallet, error)
}

// Store holds the current balance for this view. The remote wallet service
// stays authoritative: every successful remote read overwrites the local
// cache, and the cache only serves reads when the service is unreachable.
type Store struct {
	remote   RemoteWallet
	cache    localstore.Store
	notifier notify.Notifier
	fallback bool
	logger   *logger.Logger

	mu       sync.RWMutex
	current  float64
	known    bool
	walletID int64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(newBalance float64)
}

// Option configures a Store
type Option func(*Store)

// WithCacheFallback controls whether a failed remote read falls back to the
// cached value (availability) or surfaces the error (consistency). Enabled
// by default.
func WithCacheFallback(enabled bool) Option {
	return func(s *Store) { s.fallback = enabled }
}

// NewStore creates the view's balance store
func NewStore(remote RemoteWallet, cache localstore.Store, notifier notify.Notifier, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		cache:    cache,
		notifier: notifier,
		fallback: true,
		logger:   log.WithField("component", "balance"),
		subs:     make(map[int]func(float64)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the balance this view last observed. ok is false until
// the first Refresh or Adopt.
func (s *Store) Current() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.known
}

// WalletID returns the remote wallet id from the last successful refresh,
// zero when unknown.
func (s *Store) WalletID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.walletID
}

// Refresh reads the authoritative balance from the wallet service. On
// success the cache is overwritten, the change broadcast, and fresh is
// true. When the service is unreachable and fallback is enabled, the last
// cached value is adopted in memory only and fresh is false; with no cached
// value (or fallback disabled) the remote error is returned.
func (s *Store) Refresh(ctx context.Context) (value float64, fresh bool, err error) {
	wallet, err := s.remote.GetWallet(ctx)
	if err == nil {
		s.mu.Lock()
		s.walletID = wallet.ID
		s.mu.Unlock()

		if adoptErr := s.Adopt(ctx, wallet.Balance); adoptErr != nil {
			return wallet.Balance, true, adoptErr
		}
		return wallet.Balance, true, nil
	}

	if !s.fallback {
		return 0, false, err
	}

	cached, ok, cacheErr := s.cache.Get(ctx, localstore.KeyBalance)
	if cacheErr != nil || !ok {
		return 0, false, err
	}

	v, parseErr := strconv.ParseFloat(cached, 64)
	if parseErr != nil {
		return 0, false, err
	}

	s.logger.Warn("wallet service unreachable, serving cached balance", "error", err)
	s.setCurrent(v)
	return v, false, nil
}

// Adopt records a new balance: memory first, then the durable cache, then
// the broadcast. The cache write completes before the notification goes out
// so a listener that reads the cache on receipt observes the new value.
func (s *Store) Adopt(ctx context.Context, newBalance float64) error {
	s.setCurrent(newBalance)

	encoded := strconv.FormatFloat(newBalance, 'f', -1, 64)
	if err := s.cache.Set(ctx, localstore.KeyBalance, encoded); err != nil {
		return err
	}

	if err := s.notifier.Publish(ctx, notify.Change{
		Key:      localstore.KeyBalance,
		NewValue: encoded,
	}); err != nil {
		// This view is already consistent; other views will converge on
		// their next refresh.
		s.logger.Warn("failed to broadcast balance change", "error", err)
	}
	return nil
}

// Subscribe registers an in-process listener fired on every observed
// balance change, whether local or broadcast from another view.
func (s *Store) Subscribe(fn func(newBalance float64)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Listen attaches the store to the notifier so balance changes made by
// other views update this one. The publishing view never waits for its own
// notification; receiving it anyway is harmless because the value matches.
func (s *Store) Listen(ctx context.Context) (stop func(), err error) {
	return s.notifier.Subscribe(ctx, func(change notify.Change) {
		if change.Key != localstore.KeyBalance {
			return
		}
		v, parseErr := strconv.ParseFloat(change.NewValue, 64)
		if parseErr != nil {
			s.logger.Warn("ignoring malformed balance broadcast", "value", change.NewValue)
			return
		}
		s.setCurrent(v)
	})
}

func (s *Store) setCurrent(v float64) {
	s.mu.Lock()
	s.current = v
	s.known = true
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(float64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
