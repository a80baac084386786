package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, clock *testClock, opts ...ServiceOption) *Service {
	t.Helper()

	var storeOpts []cache.StoreOption
	if clock != nil {
		storeOpts = append(storeOpts, cache.WithClock(clock.Now))
	}
	store, err := cache.NewStore(cache.DefaultConfig(), storeOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, opts...)
}

var companies = []LabeledEntity{
	{ID: "c1", Label: "Acme Corp"},
	{ID: "c2", Label: "Acme Labs"},
	{ID: "c3", Label: "Globex"},
}

// fakeBackend counts calls and answers from a fixed entity list.
type fakeBackend struct {
	entities []LabeledEntity

	mu          sync.Mutex
	searchCalls map[string]int
	fetchCalls  map[string]int
	fail        error
	gate        chan struct{}

	total atomic.Int32
}

func newFakeBackend(entities []LabeledEntity) *fakeBackend {
	return &fakeBackend{
		entities:    entities,
		searchCalls: make(map[string]int),
		fetchCalls:  make(map[string]int),
	}
}

func (b *fakeBackend) setFail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = err
}

func (b *fakeBackend) wait(ctx context.Context) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBackend) Search(ctx context.Context, query string) ([]LabeledEntity, error) {
	b.total.Add(1)
	b.mu.Lock()
	b.searchCalls[query]++
	fail := b.fail
	b.mu.Unlock()

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, fail
	}

	var out []LabeledEntity
	for _, entity := range b.entities {
		if strings.Contains(strings.ToLower(entity.Label), strings.ToLower(query)) {
			out = append(out, entity)
		}
	}
	return out, nil
}

func (b *fakeBackend) Fetch(ctx context.Context, id string) (LabeledEntity, error) {
	b.total.Add(1)
	b.mu.Lock()
	b.fetchCalls[id]++
	fail := b.fail
	b.mu.Unlock()

	if err := b.wait(ctx); err != nil {
		return LabeledEntity{}, err
	}
	if fail != nil {
		return LabeledEntity{}, fail
	}
	for _, entity := range b.entities {
		if entity.ID == id {
			return entity, nil
		}
	}
	return LabeledEntity{}, cache.ErrNotFound
}

func (b *fakeBackend) searches(query string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.searchCalls[query]
}

func (b *fakeBackend) fetches(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetchCalls[id]
}
