// Package store provides the ephemeral record store every other component
// shares: a prefix-keyed value store with per-key expiry, a best-effort
// publish/subscribe bus, plus the set, list and counter primitives the
// registries and audit logs are built on. It is the only piece of shared
// mutable state in the system.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has elapsed.
var ErrNotFound = errors.New("store: not found")

// Message is one pub/sub delivery.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription is a live listener on one or more topics. Delivery is
// best-effort and at-most-once; messages published before Subscribe
// returned are never delivered.
type Subscription interface {
	// C yields messages until the subscription is closed.
	C() <-chan Message
	Close() error
}

// Store is the narrow client interface to the shared record store.
// A value written with ttl > 0 is logically absent once the TTL elapses;
// ttl == 0 means the record never expires.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the key immediately and reports whether a live
	// record was actually removed.
	Delete(ctx context.Context, key string) (bool, error)
	// Scan returns the values of all live keys starting with prefix.
	// Expired records are never returned.
	Scan(ctx context.Context, prefix string) ([][]byte, error)

	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)

	// SetAdd reports whether the member was newly added.
	SetAdd(ctx context.Context, key, member string) (bool, error)
	// SetRemove reports whether the member was present.
	SetRemove(ctx context.Context, key, member string) (bool, error)
	SetHas(ctx context.Context, key, member string) (bool, error)
	SetMembers(ctx context.Context, key string) ([]string, error)

	// ListPush appends to the tail of an append-only list.
	ListPush(ctx context.Context, key string, value []byte) error
	// ListRange returns list entries between start and stop inclusive;
	// negative indexes count from the tail, redis-style.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads a counter, returning 0 when it was never incremented.
	Counter(ctx context.Context, key string) (int64, error)

	Close() error
}
