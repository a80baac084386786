// Package form connects entity search fields to a form state.
//
// The form layer itself is opaque to search: a field only needs to read and
// write its own value and read its error message. State is a small in-memory
// implementation of that contract, used by tests and by callers without a
// form library of their own.
package form

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-entity-search/creatable"
	"github.com/goliatone/go-entity-search/search"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// FieldConfig lists the presentation options a field cares about.
type FieldConfig struct {
	Name        string
	Label       string
	Description string
	Placeholder string
	Required    bool
	Disabled    bool
}

// Validate checks the field name.
func (c FieldConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 128), validation.Match(fieldName)),
		validation.Field(&c.Label, validation.Length(0, 256)),
	)
}

// EntityFieldConfig configures a field whose value references entities of
// one namespace.
type EntityFieldConfig struct {
	FieldConfig

	Namespace string
	// Mode decides whether the stored value is an id or a label.
	Mode creatable.Mode
	// Creatable enables committing typed text as a new entry.
	Creatable bool
	Search    search.SearchFunc
	// Fetch resolves labels of ids missing from the cache. Optional.
	Fetch search.FetchFunc
	// Options overrides the namespace search options for this field.
	Options search.Options
}

// Validate checks the embedded field config and the search wiring.
func (c EntityFieldConfig) Validate() error {
	if err := c.FieldConfig.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Namespace, validation.Required),
		validation.Field(&c.Mode, validation.In(creatable.IdentifierMode, creatable.NameMode)),
		validation.Field(&c.Search, validation.By(func(value any) error {
			if fn, _ := value.(search.SearchFunc); fn == nil {
				return validation.NewError("validation_search_required", "a search function is required")
			}
			return nil
		})),
	)
}
