package di

import (
	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/pkg/config"
	"github.com/goliatone/go-entity-search/search"
	"github.com/goliatone/go-entity-search/source/bunsource"
)

// Container owns the store and the search service of an application.
// Create it at startup, pass its components explicitly and Close it at
// teardown.
type Container struct {
	store         cache.Store
	service       *search.Service
	keySerializer cache.KeySerializer
	config        cache.Config
}

// NewContainer creates the store from cfg and a service on top of it.
// opts are applied to the service in order.
func NewContainer(cfg cache.Config, opts ...search.ServiceOption) (*Container, error) {
	store, err := cache.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	keySerializer := cache.NewDefaultKeySerializer()
	opts = append([]search.ServiceOption{search.WithKeySerializer(keySerializer)}, opts...)

	return &Container{
		store:         store,
		service:       search.NewService(store, opts...),
		keySerializer: keySerializer,
		config:        cfg,
	}, nil
}

// NewContainerWithDefaults creates a container using default configuration.
func NewContainerWithDefaults(opts ...search.ServiceOption) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromFile creates a container from a TOML configuration file.
// A missing file yields the defaults. opts are applied after the file's
// search options.
func NewContainerFromFile(path string, opts ...search.ServiceOption) (*Container, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(f.CacheConfig(), append(f.ServiceOptions(), opts...)...)
}

// Store returns the shared store.
func (c *Container) Store() cache.Store {
	return c.store
}

// Service returns the search service.
func (c *Container) Service() *search.Service {
	return c.service
}

// KeySerializer returns the serializer used for every cache key.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the store.
func (c *Container) Close() error {
	return c.store.Close()
}

// NewSource wires a go-repository-bun finder as the lookup source of T.
// When opts is given it becomes the search options of the source namespace.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function.
// Example: NewSource[Company](container, companyRepo, "name", toEntry)
func NewSource[T any](container *Container, repo bunsource.Finder[T], column string, toEntry func(T) search.LabeledEntity, opts ...search.Options) (bunsource.Source[T], error) {
	src := bunsource.Source[T]{
		Repo:    repo,
		Column:  column,
		ToEntry: toEntry,
	}
	if len(opts) > 0 {
		if err := container.service.Configure(src.Namespace(), opts[0]); err != nil {
			return bunsource.Source[T]{}, err
		}
	}
	return src, nil
}
