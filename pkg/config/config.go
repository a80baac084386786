// Package config loads store and search settings from a TOML file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/search"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var sample string

// File is the content of a configuration file.
type File struct {
	Cache  CacheSection  `toml:"cache"`
	Search SearchSection `toml:"search"`
}

type CacheSection struct {
	Capacity             int                  `toml:"capacity"`
	Shards               int                  `toml:"shards"`
	TTL                  Duration             `toml:"ttl"`
	EvictionPercentage   int                  `toml:"eviction_percentage"`
	EvictionInterval     Duration             `toml:"eviction_interval,omitempty"`
	MissingRecordStorage bool                 `toml:"missing_record_storage"`
	EarlyRefresh         *EarlyRefreshSection `toml:"early_refresh,omitempty"`
}

type EarlyRefreshSection struct {
	MinAsyncRefreshTime Duration `toml:"min_async_refresh_time"`
	MaxAsyncRefreshTime Duration `toml:"max_async_refresh_time"`
	SyncRefreshTime     Duration `toml:"sync_refresh_time"`
	RetryBaseDelay      Duration `toml:"retry_base_delay"`
}

type SearchSection struct {
	Defaults   OptionsSection            `toml:"defaults"`
	Namespaces map[string]OptionsSection `toml:"namespaces"`
}

// OptionsSection mirrors search.Options with text durations.
type OptionsSection struct {
	StaleTime Duration `toml:"stale_time,omitempty"`
	MinChars  int      `toml:"min_chars,omitempty"`
	Delay     Duration `toml:"delay,omitempty"`
}

// Duration reads Go duration strings such as "300ms" or "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the settings used when no file exists.
func Default() File {
	c := cache.DefaultConfig()
	o := search.DefaultOptions()

	f := File{
		Cache: CacheSection{
			Capacity:             c.Capacity,
			Shards:               c.NumShards,
			TTL:                  Duration{c.TTL},
			EvictionPercentage:   c.EvictionPercentage,
			EvictionInterval:     Duration{c.EvictionInterval},
			MissingRecordStorage: c.MissingRecordStorage,
		},
		Search: SearchSection{
			Defaults:   fromOptions(o),
			Namespaces: make(map[string]OptionsSection),
		},
	}
	if c.EarlyRefresh != nil {
		f.Cache.EarlyRefresh = &EarlyRefreshSection{
			MinAsyncRefreshTime: Duration{c.EarlyRefresh.MinAsyncRefreshTime},
			MaxAsyncRefreshTime: Duration{c.EarlyRefresh.MaxAsyncRefreshTime},
			SyncRefreshTime:     Duration{c.EarlyRefresh.SyncRefreshTime},
			RetryBaseDelay:      Duration{c.EarlyRefresh.RetryBaseDelay},
		}
	}
	return f
}

// Load reads path. A missing file yields Default.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return File{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (File, error) {
	f := Default()
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if f.Search.Namespaces == nil {
		f.Search.Namespaces = make(map[string]OptionsSection)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks the cache settings and every search option set.
func (f File) Validate() error {
	if err := f.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := f.Search.Defaults.Options().Validate(); err != nil {
		return fmt.Errorf("search.defaults: %w", err)
	}
	for _, name := range f.NamespaceNames() {
		if err := f.Search.Namespaces[name].Options().Validate(); err != nil {
			return fmt.Errorf("search.namespaces.%s: %w", name, err)
		}
	}
	return nil
}

// CacheConfig converts the cache section.
func (f File) CacheConfig() cache.Config {
	c := cache.Config{
		Capacity:             f.Cache.Capacity,
		NumShards:            f.Cache.Shards,
		TTL:                  f.Cache.TTL.Duration,
		EvictionPercentage:   f.Cache.EvictionPercentage,
		EvictionInterval:     f.Cache.EvictionInterval.Duration,
		MissingRecordStorage: f.Cache.MissingRecordStorage,
	}
	if er := f.Cache.EarlyRefresh; er != nil {
		c.EarlyRefresh = &cache.EarlyRefreshConfig{
			MinAsyncRefreshTime: er.MinAsyncRefreshTime.Duration,
			MaxAsyncRefreshTime: er.MaxAsyncRefreshTime.Duration,
			SyncRefreshTime:     er.SyncRefreshTime.Duration,
			RetryBaseDelay:      er.RetryBaseDelay.Duration,
		}
	}
	return c
}

// NamespaceNames returns the configured namespaces in sorted order.
func (f File) NamespaceNames() []string {
	names := make([]string, 0, len(f.Search.Namespaces))
	for name := range f.Search.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServiceOptions converts the search section into service options.
func (f File) ServiceOptions() []search.ServiceOption {
	opts := []search.ServiceOption{search.WithDefaults(f.Search.Defaults.Options())}
	for _, name := range f.NamespaceNames() {
		opts = append(opts, search.WithNamespace(name, f.Search.Namespaces[name].Options()))
	}
	return opts
}

// Options converts the section.
func (o OptionsSection) Options() search.Options {
	return search.Options{
		StaleTime: o.StaleTime.Duration,
		MinChars:  o.MinChars,
		Delay:     o.Delay.Duration,
	}
}

func fromOptions(o search.Options) OptionsSection {
	return OptionsSection{
		StaleTime: Duration{o.StaleTime},
		MinChars:  o.MinChars,
		Delay:     Duration{o.Delay},
	}
}

// Save writes f to path, creating parent directories.
func (f File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Sample returns a commented example configuration.
func Sample() string {
	return sample
}
