package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-entity-search/internal/pubsub"
	"github.com/viccon/sturdyc"
)

// NeverStale marks an entry that is valid until explicitly invalidated.
const NeverStale time.Duration = 0

var (
	// ErrNotFound should be returned by a GetOrFetch fetch function when the
	// requested record does not exist at the source.
	ErrNotFound = sturdyc.ErrNotFound

	// ErrMissingRecord is returned by GetOrFetch for keys previously
	// remembered as missing.
	ErrMissingRecord = sturdyc.ErrMissingRecord
)

// IsNotFound reports whether err signals a record that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMissingRecord)
}

// Entry is a single cached value together with its write time and
// staleness policy.
type Entry struct {
	Value      any
	WrittenAt  time.Time
	StaleAfter time.Duration
}

// Stale reports whether the entry is past its StaleAfter window at now.
// Stale entries are still returned by Get so callers can serve them while
// they refresh.
func (e Entry) Stale(now time.Time) bool {
	if e.StaleAfter <= NeverStale {
		return false
	}
	return now.Sub(e.WrittenAt) >= e.StaleAfter
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is an in memory result store backed by a sturdyc client.
// Every write and invalidation is announced through a broker keyed by the
// cache key so observers can recompute derived state.
type Store struct {
	client *sturdyc.Client[Entry]
	broker *pubsub.Broker[string]
	now    func() time.Time
	closed atomic.Bool
}

// NewStore validates cfg and initializes the sturdyc client.
func NewStore(cfg Config, opts ...StoreOption) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[Entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	s := &Store{
		client: client,
		broker: pubsub.NewBroker[string](),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the entry stored under key. Misses are reported through ok.
func (s *Store) Get(key string) (Entry, bool) {
	return s.client.Get(key)
}

// Set overwrites the value stored under key and resets its write time.
func (s *Store) Set(key string, value any, staleAfter time.Duration) {
	s.client.Set(key, Entry{
		Value:      value,
		WrittenAt:  s.now(),
		StaleAfter: staleAfter,
	})
	s.broker.Publish(pubsub.UpdatedEvent, key)
}

// SetMany writes every value with the same staleness policy.
func (s *Store) SetMany(values map[string]any, staleAfter time.Duration) {
	if len(values) == 0 {
		return
	}
	now := s.now()
	records := make(map[string]Entry, len(values))
	for key, value := range values {
		records[key] = Entry{Value: value, WrittenAt: now, StaleAfter: staleAfter}
	}
	s.client.SetMany(records)
	for key := range records {
		s.broker.Publish(pubsub.UpdatedEvent, key)
	}
}

// Invalidate removes a single entry. Absent keys are a no-op.
func (s *Store) Invalidate(key string) {
	_, existed := s.client.Get(key)
	s.client.Delete(key)
	if existed {
		s.broker.Publish(pubsub.DeletedEvent, key)
	}
}

// InvalidateKeys removes multiple entries.
func (s *Store) InvalidateKeys(keys []string) {
	for _, key := range keys {
		s.Invalidate(key)
	}
}

// InvalidatePrefix removes all entries whose key starts with prefix.
func (s *Store) InvalidatePrefix(prefix string) {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.Invalidate(key)
		}
	}
}

// GetOrFetch returns the entry stored under key or runs fetchFn to produce
// it. Concurrent calls for the same key share a single fetchFn invocation.
// Failed fetches are not stored.
func (s *Store) GetOrFetch(ctx context.Context, key string, staleAfter time.Duration, fetchFn func(context.Context) (any, error)) (Entry, error) {
	if fetchFn == nil {
		return Entry{}, &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	var fetched atomic.Bool
	entry, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (Entry, error) {
		value, err := fetchFn(ctx)
		if err != nil {
			return Entry{}, err
		}
		fetched.Store(true)
		return Entry{Value: value, WrittenAt: s.now(), StaleAfter: staleAfter}, nil
	})
	if err != nil {
		return Entry{}, err
	}

	if fetched.Load() {
		s.broker.Publish(pubsub.UpdatedEvent, key)
	}
	return entry, nil
}

// Subscribe returns a channel of change events. The payload is the cache key.
func (s *Store) Subscribe(ctx context.Context) <-chan pubsub.Event[string] {
	return s.broker.Subscribe(ctx)
}

// Keys returns every key currently held by the store.
func (s *Store) Keys() []string {
	return s.client.ScanKeys()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.client.Size()
}

// Now returns the store clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Close stops change notifications and closes every subscriber channel.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.broker.Shutdown()
	}
	return nil
}
