package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/search"
	"golang.org/x/text/cases"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadEntities loads a shared entity fixture, e.g. "companies.json".
func LoadEntities(t testing.TB, name string) []search.LabeledEntity {
	t.Helper()

	var entities []search.LabeledEntity
	LoadFixtureJSON(t, SharedFixturePath(name), &entities)
	return entities
}

// WriteGolden writes test output to a golden file.
// This should typically only be called when updating golden files.
// The path is relative to the test package directory.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with expected data from a golden file.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if strings.TrimSpace(string(actual)) != strings.TrimSpace(string(expected)) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareWithGoldenJSON marshals actual as indented JSON and compares it
// with the golden file.
func CompareWithGoldenJSON(t testing.TB, path string, actual any) {
	t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}
	CompareWithGolden(t, path, data)
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// SharedFixturePath returns the path of a fixture shipped with this package,
// usable from any test package.
func SharedFixturePath(filename string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", filename)
}

// NewService returns a search service over a fresh default store that is
// closed when the test ends.
func NewService(t testing.TB, opts ...search.ServiceOption) *search.Service {
	t.Helper()

	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return search.NewService(store, opts...)
}

// Backend serves a fixed entity list and counts lookups.
type Backend struct {
	entities []search.LabeledEntity
	folder   cases.Caser

	mu       sync.Mutex
	searches int
	fetches  map[string]int
	err      error
}

// NewBackend returns a backend over entities.
func NewBackend(entities []search.LabeledEntity) *Backend {
	return &Backend{
		entities: entities,
		folder:   cases.Fold(),
		fetches:  make(map[string]int),
	}
}

// Fail makes every later lookup return err. Pass nil to recover.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Search matches labels containing query, ignoring case.
func (b *Backend) Search(ctx context.Context, query string) ([]search.LabeledEntity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.searches++
	if b.err != nil {
		return nil, b.err
	}

	needle := b.folder.String(query)
	var out []search.LabeledEntity
	for _, entity := range b.entities {
		if strings.Contains(b.folder.String(entity.Label), needle) {
			out = append(out, entity)
		}
	}
	return out, nil
}

// Fetch returns the entity with id or cache.ErrNotFound.
func (b *Backend) Fetch(ctx context.Context, id string) (search.LabeledEntity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fetches[id]++
	if b.err != nil {
		return search.LabeledEntity{}, b.err
	}
	for _, entity := range b.entities {
		if entity.ID == id {
			return entity, nil
		}
	}
	return search.LabeledEntity{}, cache.ErrNotFound
}

// Searches returns the number of Search calls.
func (b *Backend) Searches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.searches
}

// Fetches returns the number of Fetch calls for id.
func (b *Backend) Fetches(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[id]
}
