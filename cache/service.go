package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-entity-search/internal/cacheinfra"
	"github.com/goliatone/go-entity-search/internal/pubsub"
)

// NeverStale marks entries that stay valid until explicitly invalidated.
const NeverStale = cacheinfra.NeverStale

// Entry is a cached value with its write time and staleness policy.
type Entry = cacheinfra.Entry

// Change is published every time a key is written or removed. Payload holds
// the affected cache key.
type Change = pubsub.Event[string]

// Change types.
const (
	ChangeSet    = pubsub.UpdatedEvent
	ChangeDelete = pubsub.DeletedEvent
)

var (
	// ErrNotFound is returned by fetch functions to signal that the source
	// has no record for the key.
	ErrNotFound = cacheinfra.ErrNotFound

	// ErrInvalidResultType is returned when a cached value does not have the
	// type requested by a generic accessor.
	ErrInvalidResultType = errors.New("cache: invalid result type")
)

// IsNotFound reports whether err is a not found signal, including keys
// remembered as missing by the store.
func IsNotFound(err error) bool {
	return cacheinfra.IsNotFound(err)
}

// KeySerializer builds a cache key from a namespace and key segments.
// It is responsible for producing stable, collision free keys.
type KeySerializer interface {
	SerializeKey(namespace string, parts ...string) string
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is the process local result store shared by every search session.
// Reads never block on I/O and writes are atomic per key. Misses are never
// errors.
type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, value any, staleAfter time.Duration)
	SetMany(values map[string]any, staleAfter time.Duration)
	Invalidate(key string)
	InvalidateKeys(keys []string)
	InvalidatePrefix(prefix string)
	GetOrFetch(ctx context.Context, key string, staleAfter time.Duration, fetchFn func(context.Context) (any, error)) (Entry, error)
	Subscribe(ctx context.Context) <-chan Change
	Keys() []string
	Len() int
	Now() time.Time
	Close() error
}

// GetAs reads key and asserts its value to T.
func GetAs[T any](store Store, key string) (T, Entry, bool) {
	var zero T
	entry, ok := store.Get(key)
	if !ok {
		return zero, Entry{}, false
	}
	value, ok := entry.Value.(T)
	if !ok {
		return zero, entry, false
	}
	return value, entry, true
}

// GetOrFetch is a type-safe wrapper around Store.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, store Store, key string, staleAfter time.Duration, fetchFn FetchFn[T]) (T, error) {
	var zero T
	entry, err := store.GetOrFetch(ctx, key, staleAfter, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if entry.Value == nil {
		return zero, nil
	}
	value, ok := entry.Value.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return value, nil
}
