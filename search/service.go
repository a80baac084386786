package search

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/creatable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for lookup failures and discarded results.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaults replaces the options used by namespaces without their own.
func WithDefaults(opts Options) ServiceOption {
	return func(s *Service) {
		s.defaults = opts.Merge(DefaultOptions())
	}
}

// WithNamespace registers options for a single namespace.
func WithNamespace(namespace string, opts Options) ServiceOption {
	return func(s *Service) {
		s.namespaces[namespace] = opts
	}
}

// WithKeySerializer overrides how cache keys are composed.
func WithKeySerializer(serializer cache.KeySerializer) ServiceOption {
	return func(s *Service) {
		if serializer != nil {
			s.keys = cache.Keys{Serializer: serializer}
		}
	}
}

// Service resolves searches and labels against a shared cache.Store.
//
// Search results are written twice: once as a list under the search key with
// the namespace stale time, and once per entity under its entity key with
// no staleness. Label lookups only ever read entity keys.
type Service struct {
	store    cache.Store
	keys     cache.Keys
	logger   logrus.FieldLogger
	defaults Options

	mu         sync.RWMutex
	namespaces map[string]Options

	group singleflight.Group
}

// NewService wires a Service to store. The store is owned by the caller.
func NewService(store cache.Store, opts ...ServiceOption) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &Service{
		store:      store,
		keys:       cache.DefaultKeys,
		logger:     logger,
		defaults:   DefaultOptions(),
		namespaces: make(map[string]Options),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() cache.Store {
	return s.store
}

// Keys returns the key builder used by the service.
func (s *Service) Keys() cache.Keys {
	return s.keys
}

// Configure sets the options for namespace after validating them.
func (s *Service) Configure(namespace string, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.namespaces[namespace] = opts
	s.mu.Unlock()
	return nil
}

// Options returns the effective options of namespace.
func (s *Service) Options(namespace string) Options {
	s.mu.RLock()
	opts, ok := s.namespaces[namespace]
	s.mu.RUnlock()
	if !ok {
		return s.defaults
	}
	return opts.Merge(s.defaults)
}

// Lookup reads the cached result list for query without fetching.
func (s *Service) Lookup(namespace, query string) (entities []LabeledEntity, fresh bool, ok bool) {
	items, entry, ok := cache.GetAs[[]LabeledEntity](s.store, s.keys.Search(namespace, query))
	if !ok {
		return nil, false, false
	}
	return slices.Clone(items), !entry.Stale(s.store.Now()), true
}

// Search returns the options for query. Fresh cached lists are returned
// directly; stale lists are returned while a refresh runs in the background;
// misses wait for fn. Concurrent searches for the same key share one call.
//
// An optional Options value overrides the namespace options for this call.
func (s *Service) Search(ctx context.Context, namespace, query string, fn SearchFunc, opts ...Options) ([]LabeledEntity, error) {
	if fn == nil {
		return nil, ErrNoSearchFunc
	}

	o := s.Options(namespace)
	if len(opts) > 0 {
		o = opts[0].Merge(o)
	}

	items, fresh, ok := s.Lookup(namespace, query)
	if ok && fresh {
		return items, nil
	}
	if ok {
		s.refresh(namespace, query, fn, o)
		return items, nil
	}

	return s.fetch(ctx, namespace, query, fn, o)
}

func (s *Service) refresh(namespace, query string, fn SearchFunc, o Options) {
	key := s.keys.Search(namespace, query)
	s.group.DoChan(key, func() (any, error) {
		return s.runSearch(context.Background(), namespace, query, fn, o)
	})
}

// fetch runs fn through the in-flight group. The shared call is detached
// from ctx so one caller giving up does not fail the others; ctx only bounds
// how long this caller waits.
func (s *Service) fetch(ctx context.Context, namespace, query string, fn SearchFunc, o Options) ([]LabeledEntity, error) {
	key := s.keys.Search(namespace, query)
	shared := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.runSearch(shared, namespace, query, fn, o)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]LabeledEntity)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) runSearch(ctx context.Context, namespace, query string, fn SearchFunc, o Options) ([]LabeledEntity, error) {
	items, err := fn(ctx, query)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"namespace": namespace,
			"query":     query,
		}).WithError(err).Warn("search lookup failed")
		return nil, lookupFailure(namespace, query, err)
	}

	items = slices.Clone(items)
	s.write(namespace, query, items, o.StaleTime)
	return items, nil
}

func (s *Service) write(namespace, query string, items []LabeledEntity, staleTime time.Duration) {
	s.seed(namespace, items)
	s.store.Set(s.keys.Search(namespace, query), items, staleTime)
}

// GetLabel returns the display label for id without blocking. Pending
// values decode to their embedded name, cached entities to their label and
// anything else to the raw id.
func (s *Service) GetLabel(namespace, id string) string {
	if id == "" {
		return ""
	}
	if creatable.IsPending(id) {
		return creatable.DecodePending(id)
	}
	if entity, ok := s.Entity(namespace, id); ok && entity.Label != "" {
		return entity.Label
	}
	return id
}

// Entity reads an individually cached entity.
func (s *Service) Entity(namespace, id string) (LabeledEntity, bool) {
	entity, _, ok := cache.GetAs[LabeledEntity](s.store, s.keys.Entity(namespace, id))
	return entity, ok
}

// Seed writes entities under their entity keys ahead of first use.
func (s *Service) Seed(namespace string, entities ...LabeledEntity) {
	s.seed(namespace, entities)
}

func (s *Service) seed(namespace string, entities []LabeledEntity) {
	values := make(map[string]any, len(entities))
	for _, entity := range entities {
		if entity.ID == "" {
			continue
		}
		values[s.keys.Entity(namespace, entity.ID)] = entity
	}
	s.store.SetMany(values, cache.NeverStale)
}

// FetchEntity returns the cached entity for id, calling fn on a miss.
// Concurrent fetches of the same id share one call.
func (s *Service) FetchEntity(ctx context.Context, namespace, id string, fn FetchFunc) (LabeledEntity, error) {
	if creatable.IsPending(id) {
		return LabeledEntity{ID: id, Label: creatable.DecodePending(id)}, nil
	}
	if entity, ok := s.Entity(namespace, id); ok {
		return entity, nil
	}
	if fn == nil {
		return LabeledEntity{}, lookupFailure(namespace, id, cache.ErrNotFound)
	}

	key := s.keys.Entity(namespace, id)
	entity, err := cache.GetOrFetch(context.WithoutCancel(ctx), s.store, key, cache.NeverStale, func(ctx context.Context) (LabeledEntity, error) {
		return fn(ctx, id)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"namespace": namespace,
			"id":        id,
		}).WithError(err).Warn("entity lookup failed")
		return LabeledEntity{}, lookupFailure(namespace, id, err)
	}
	return entity, nil
}

// Invalidate drops the cached entity for id.
func (s *Service) Invalidate(namespace, id string) {
	s.store.Invalidate(s.keys.Entity(namespace, id))
}

// InvalidateSearches drops every cached result list of namespace, e.g.
// after an entity was created or renamed. Entity entries are kept.
func (s *Service) InvalidateSearches(namespace string) {
	s.store.InvalidatePrefix(s.keys.SearchPrefix(namespace))
}
