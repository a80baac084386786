package search

import (
	"context"
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
)

// LabeledEntity is the cached representation of a searchable entity.
// ID is the value stored in a form field, Label is what a user reads.
type LabeledEntity struct {
	ID          string `json:"id" msgpack:"id"`
	Label       string `json:"label" msgpack:"label"`
	Description string `json:"description,omitempty" msgpack:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty" msgpack:"disabled,omitempty"`
	Group       string `json:"group,omitempty" msgpack:"group,omitempty"`
}

// SearchFunc is the integrator supplied lookup for a namespace.
type SearchFunc func(ctx context.Context, query string) ([]LabeledEntity, error)

// FetchFunc is the integrator supplied lookup of a single entity by id.
// Return cache.ErrNotFound when the id does not exist.
type FetchFunc func(ctx context.Context, id string) (LabeledEntity, error)

// Mapped adapts a lookup returning domain values into a SearchFunc.
func Mapped[T any](fn func(ctx context.Context, query string) ([]T, error), toEntry func(T) LabeledEntity) SearchFunc {
	return func(ctx context.Context, query string) ([]LabeledEntity, error) {
		records, err := fn(ctx, query)
		if err != nil {
			return nil, err
		}
		out := make([]LabeledEntity, 0, len(records))
		for _, record := range records {
			out = append(out, toEntry(record))
		}
		return out, nil
	}
}

// MappedFetch adapts a single record lookup into a FetchFunc.
func MappedFetch[T any](fn func(ctx context.Context, id string) (T, error), toEntry func(T) LabeledEntity) FetchFunc {
	return func(ctx context.Context, id string) (LabeledEntity, error) {
		record, err := fn(ctx, id)
		if err != nil {
			return LabeledEntity{}, err
		}
		return toEntry(record), nil
	}
}

// NamespaceOf derives a namespace from a Go type name, e.g. Company becomes
// "companies" and *UserAccount becomes "user_accounts".
func NamespaceOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if idx := strings.IndexByte(name, '['); idx >= 0 {
		name = name[:idx]
	}
	return inflection.Plural(toSnake(name))
}
