package state

import "context"

// Store is a small durable key/value surface for operational state that does
// not belong in the trade ledger: execution idempotency markers and the last
// cycle snapshot.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
