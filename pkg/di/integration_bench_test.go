package di

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/pkg/testsupport"
	"github.com/goliatone/go-entity-search/search"
)

// TestConcurrentAccess tests concurrent searches and label lookups against one container
func TestConcurrentAccess(t *testing.T) {
	config := cache.Config{
		Capacity:             1000,
		NumShards:            16,
		TTL:                  5 * time.Second,
		EvictionPercentage:   10,
		EarlyRefresh:         nil,
		MissingRecordStorage: true,
		EvictionInterval:     0,
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Close()

	entities := make([]search.LabeledEntity, 100)
	for i := range entities {
		entities[i] = search.LabeledEntity{ID: fmt.Sprintf("company-%d", i), Label: fmt.Sprintf("Company %d", i)}
	}
	backend := testsupport.NewBackend(entities)
	svc := container.Service()

	ctx := context.Background()
	const numGoroutines = 50
	const operationsPerGoroutine = 20

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				n := (workerID*operationsPerGoroutine + j) % 100

				if _, err := svc.FetchEntity(ctx, "companies", fmt.Sprintf("company-%d", n), backend.Fetch); err != nil {
					errors <- fmt.Errorf("worker %d operation %d FetchEntity failed: %v", workerID, j, err)
					continue
				}

				// Search every 5th iteration
				if j%5 == 0 {
					if _, err := svc.Search(ctx, "companies", fmt.Sprintf("company %d", n%10), backend.Search); err != nil {
						errors <- fmt.Errorf("worker %d operation %d Search failed: %v", workerID, j, err)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	var errorCount int
	for err := range errors {
		t.Error(err)
		errorCount++
		if errorCount > 10 { // Limit error output
			t.Error("... and more errors")
			break
		}
	}

	if errorCount > 0 {
		t.Fatalf("Concurrent access test failed with %d errors", errorCount)
	}

	totalOperations := numGoroutines * operationsPerGoroutine
	fetchCalls := 0
	for _, e := range entities {
		fetchCalls += backend.Fetches(e.ID)
	}

	if fetchCalls > len(entities) {
		t.Errorf("Expected at most one fetch per id: got %d fetches for %d ids", fetchCalls, len(entities))
	}

	t.Logf("Concurrent test completed: %d operations resulted in %d fetches and %d searches",
		totalOperations, fetchCalls, backend.Searches())
}

// TestConcurrentSessions runs many sessions typing at once
func TestConcurrentSessions(t *testing.T) {
	container, err := NewContainerWithDefaults(search.WithDefaults(search.Options{Delay: 5 * time.Millisecond}))
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Close()

	backend := testsupport.NewBackend(testsupport.LoadEntities(t, "companies.json"))
	svc := container.Service()

	const numSessions = 20
	var wg sync.WaitGroup
	results := make([]search.SessionState, numSessions)

	for i := 0; i < numSessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sess, err := svc.NewSession("companies", backend.Search)
			if err != nil {
				t.Errorf("NewSession() failed: %v", err)
				return
			}
			defer sess.Close()

			for _, text := range []string{"c", "co", "cor", "corp"} {
				sess.Input(text)
			}

			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				s := sess.State()
				if s.DebouncedQuery == "corp" && !s.IsLoading {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			results[i] = sess.State()
		}(i)
	}
	wg.Wait()

	for i, state := range results {
		if state.DebouncedQuery != "corp" || state.IsLoading {
			t.Errorf("session %d did not settle: %+v", i, state)
			continue
		}
		if len(state.Options) != 2 {
			t.Errorf("session %d expected 2 options, got %d", i, len(state.Options))
		}
	}

	if searches := backend.Searches(); searches >= numSessions*4 {
		t.Errorf("Expected debounce and cache to reduce searches, got %d", searches)
	}
}

// TestStaleTimeIntegration tests stale lists being refreshed in the background
func TestStaleTimeIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults(search.WithDefaults(search.Options{StaleTime: 50 * time.Millisecond}))
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Close()

	backend := testsupport.NewBackend(testsupport.LoadEntities(t, "companies.json"))
	svc := container.Service()
	ctx := context.Background()

	if _, err := svc.Search(ctx, "companies", "globex", backend.Search); err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if _, err := svc.Search(ctx, "companies", "globex", backend.Search); err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if backend.Searches() != 1 {
		t.Errorf("Expected 1 search while fresh, got %d", backend.Searches())
	}

	time.Sleep(80 * time.Millisecond)

	items, err := svc.Search(ctx, "companies", "globex", backend.Search)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected stale list to be returned, got %d items", len(items))
	}

	deadline := time.Now().Add(time.Second)
	for backend.Searches() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if backend.Searches() != 2 {
		t.Errorf("Expected a background refresh, got %d searches", backend.Searches())
	}

	// Entities never go stale.
	entry, ok := container.Store().Get(cache.EntityKey("companies", "c3"))
	if !ok || entry.Stale(time.Now().Add(24*time.Hour)) {
		t.Error("Entity entries should never be stale")
	}
}

// BenchmarkKeySerializationPerformance benchmarks key serialization performance
func BenchmarkKeySerializationPerformance(b *testing.B) {
	serializer := cache.NewDefaultKeySerializer()

	testCases := []struct {
		name  string
		parts []string
	}{
		{
			name:  "entity_key",
			parts: []string{"company-123"},
		},
		{
			name:  "search_key",
			parts: []string{cache.SearchSegment, "acme corp"},
		},
		{
			name:  "escaped_key",
			parts: []string{cache.SearchSegment, "a::b%c#d"},
		},
		{
			name:  "hashed_key",
			parts: []string{cache.SearchSegment, strings.Repeat("long query ", 20)},
		},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = serializer.SerializeKey("companies", tc.parts...)
			}
		})
	}
}

// BenchmarkCachedVsBackendSearch compares a cached search with a direct backend call
func BenchmarkCachedVsBackendSearch(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Close()

	backend := testsupport.NewBackend(testsupport.LoadEntities(b, "companies.json"))
	svc := container.Service()
	ctx := context.Background()

	b.Run("backend", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = backend.Search(ctx, "corp")
		}
	})

	b.Run("cached", func(b *testing.B) {
		_, _ = svc.Search(ctx, "companies", "corp", backend.Search)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = svc.Search(ctx, "companies", "corp", backend.Search)
		}
	})
}

// BenchmarkResolveLabels benchmarks label resolution of cached ids
func BenchmarkResolveLabels(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Close()

	entities := testsupport.LoadEntities(b, "companies.json")
	svc := container.Service()
	svc.Seed("companies", entities...)

	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = svc.ResolveLabels(context.Background(), "companies", ids, nil)
		}
	})
}
