// Package localstore is the client-side durable key/value store shared by
// every open view of the application. It replaces the browser's
// origin-scoped storage: one slot per well-known key, visible to all views
// on the machine.
package localstore

import "context"

// Well-known keys. KeyBalance intentionally keeps the product's historical
// name so views of different versions read the same slot.
const (
	KeyBalance = "fakecombank_wallet_balance"
	KeyHolding = "ownedCoins"
	KeyProfile = "user"
	KeyToken   = "token"
)

// Store is a single-origin durable key/value slot collection. Get reports
// absence with ok=false; Set must be durable by the time it returns so that
// a change notification sent afterwards never races a stale read.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
