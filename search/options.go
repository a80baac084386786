package search

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-entity-search/debounce"
)

// DefaultStaleTime is how long a search result list is served as fresh.
const DefaultStaleTime = 30 * time.Second

// Options tunes search behavior for a namespace. Zero fields inherit the
// service defaults.
type Options struct {
	// StaleTime is the freshness window of cached search result lists.
	StaleTime time.Duration `toml:"stale_time"`
	// MinChars is the shortest query a session dispatches. The floor is 1
	// since an empty query clears; zero inherits like every other field.
	MinChars int `toml:"min_chars"`
	// Delay is the session debounce delay.
	Delay time.Duration `toml:"delay"`
}

// DefaultOptions returns the design defaults.
func DefaultOptions() Options {
	return Options{
		StaleTime: DefaultStaleTime,
		MinChars:  debounce.DefaultMinChars,
		Delay:     debounce.DefaultDelay,
	}
}

// Validate rejects negative values.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.StaleTime, validation.Min(time.Duration(0))),
		validation.Field(&o.MinChars, validation.Min(0)),
		validation.Field(&o.Delay, validation.Min(time.Duration(0))),
	)
}

// Merge fills zero fields of o from base.
func (o Options) Merge(base Options) Options {
	if o.StaleTime <= 0 {
		o.StaleTime = base.StaleTime
	}
	if o.MinChars <= 0 {
		o.MinChars = base.MinChars
	}
	if o.Delay <= 0 {
		o.Delay = base.Delay
	}
	return o
}

func (o Options) debounce() debounce.Options {
	return debounce.Options{Delay: o.Delay, MinChars: o.MinChars}
}
