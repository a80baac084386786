package form

import (
	"context"
	"slices"
	"strings"

	"github.com/goliatone/go-entity-search/creatable"
	"github.com/goliatone/go-entity-search/search"
	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrFieldDisabled is returned when a disabled field is written.
	ErrFieldDisabled = goerrors.New("field is disabled", goerrors.CategoryValidation).
		WithTextCode("FIELD_DISABLED")
	// ErrCreateNotAllowed is returned when Create is called while the create
	// affordance is hidden.
	ErrCreateNotAllowed = goerrors.New("creating this value is not allowed", goerrors.CategoryValidation).
		WithTextCode("CREATE_NOT_ALLOWED")
)

type entityBase struct {
	cfg     EntityFieldConfig
	svc     *search.Service
	session *search.Session
}

func newEntityBase(svc *search.Service, cfg EntityFieldConfig, opts []search.SessionOption) (entityBase, error) {
	if err := cfg.Validate(); err != nil {
		return entityBase{}, err
	}
	opts = append([]search.SessionOption{search.WithSessionOptions(cfg.Options)}, opts...)
	session, err := svc.NewSession(cfg.Namespace, cfg.Search, opts...)
	if err != nil {
		return entityBase{}, err
	}
	return entityBase{cfg: cfg, svc: svc, session: session}, nil
}

// Config returns the field configuration.
func (b *entityBase) Config() EntityFieldConfig { return b.cfg }

// Input forwards typed text to the search session.
func (b *entityBase) Input(text string) { b.session.Input(text) }

// Flush settles pending input immediately.
func (b *entityBase) Flush() { b.session.Flush() }

// SearchState returns the current search session state.
func (b *entityBase) SearchState() search.SessionState { return b.session.State() }

// Options returns the options currently offered.
func (b *entityBase) Options() []search.LabeledEntity { return b.session.State().Options }

// Close releases the search session.
func (b *entityBase) Close() { b.session.Close() }

func (b *entityBase) labels(options []search.LabeledEntity) []string {
	out := make([]string, len(options))
	for i, option := range options {
		out[i] = option.Label
	}
	return out
}

func (b *entityBase) canCreate(selected []string, multiple bool) bool {
	if !b.cfg.Creatable || b.cfg.Disabled {
		return false
	}
	state := b.session.State()
	return creatable.CreateCheck{
		Text:     state.RawQuery,
		Loading:  state.IsLoading,
		Labels:   b.labels(state.Options),
		Selected: selected,
		Multiple: multiple,
		Mode:     b.cfg.Mode,
	}.Visible()
}

func (b *entityBase) pick(entity search.LabeledEntity) string {
	if b.cfg.Mode == creatable.IdentifierMode {
		b.svc.Seed(b.cfg.Namespace, entity)
	}
	return b.cfg.Mode.PickValue(entity.ID, entity.Label)
}

func (b *entityBase) createValue() string {
	return b.cfg.Mode.CreateValue(strings.TrimSpace(b.session.State().RawQuery))
}

func (b *entityBase) label(value string) string {
	if b.cfg.Mode == creatable.NameMode {
		return value
	}
	return b.svc.GetLabel(b.cfg.Namespace, value)
}

// EntityField is a single value field backed by an entity search.
type EntityField struct {
	entityBase
	acc Accessor
}

// NewEntityField binds an entity search to acc.
func NewEntityField(svc *search.Service, acc Accessor, cfg EntityFieldConfig, opts ...search.SessionOption) (*EntityField, error) {
	base, err := newEntityBase(svc, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &EntityField{entityBase: base, acc: acc}, nil
}

// Value returns the stored value.
func (f *EntityField) Value() string { return f.acc.Value() }

// Error returns the form error of the field.
func (f *EntityField) Error() string { return f.acc.Error() }

// Select stores entity as the field value.
func (f *EntityField) Select(entity search.LabeledEntity) error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	f.acc.SetValue(f.pick(entity))
	return nil
}

// Clear empties the field.
func (f *EntityField) Clear() error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	f.acc.SetValue("")
	return nil
}

// CanCreate reports whether the typed text can be committed as a new entry.
func (f *EntityField) CanCreate() bool {
	return f.canCreate(nil, false)
}

// Create commits the typed text as a new entry.
func (f *EntityField) Create() error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	if !f.CanCreate() {
		return ErrCreateNotAllowed
	}
	f.acc.SetValue(f.createValue())
	return nil
}

// DisplayLabel returns the label of the stored value without blocking.
func (f *EntityField) DisplayLabel() string {
	return f.label(f.acc.Value())
}

// ResolveLabel returns the label of the stored value, fetching it when the
// entity is not cached and a Fetch function is configured.
func (f *EntityField) ResolveLabel(ctx context.Context) search.ResolvedLabel {
	value := f.acc.Value()
	if f.cfg.Mode == creatable.NameMode {
		return search.ResolvedLabel{ID: value, Label: value}
	}
	return f.svc.ResolveLabels(ctx, f.cfg.Namespace, []string{value}, f.cfg.Fetch)[0]
}

// Intents expands the stored value for submission.
func (f *EntityField) Intents() ([]creatable.Intent, error) {
	return creatable.ExpandValues(f.cfg.Mode, []string{f.acc.Value()})
}

// EntityMultiField is a multi value field backed by an entity search.
type EntityMultiField struct {
	entityBase
	acc MultiAccessor
}

// NewEntityMultiField binds an entity search to acc.
func NewEntityMultiField(svc *search.Service, acc MultiAccessor, cfg EntityFieldConfig, opts ...search.SessionOption) (*EntityMultiField, error) {
	base, err := newEntityBase(svc, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &EntityMultiField{entityBase: base, acc: acc}, nil
}

// Values returns the stored values.
func (f *EntityMultiField) Values() []string { return f.acc.Values() }

// Error returns the form error of the field.
func (f *EntityMultiField) Error() string { return f.acc.Error() }

// Select appends entity to the values. Selecting a value twice is a no-op.
func (f *EntityMultiField) Select(entity search.LabeledEntity) error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	f.add(f.pick(entity))
	return nil
}

// Remove drops value from the selection.
func (f *EntityMultiField) Remove(value string) error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	values := f.acc.Values()
	if i := slices.Index(values, value); i >= 0 {
		f.acc.SetValues(slices.Delete(values, i, i+1))
	}
	return nil
}

// CanCreate reports whether the typed text can be committed as a new entry.
func (f *EntityMultiField) CanCreate() bool {
	return f.canCreate(f.acc.Values(), true)
}

// Create appends the typed text as a new entry.
func (f *EntityMultiField) Create() error {
	if f.cfg.Disabled {
		return ErrFieldDisabled
	}
	if !f.CanCreate() {
		return ErrCreateNotAllowed
	}
	f.add(f.createValue())
	return nil
}

func (f *EntityMultiField) add(value string) {
	values := f.acc.Values()
	if slices.Contains(values, value) {
		return
	}
	f.acc.SetValues(append(values, value))
}

// DisplayLabels returns the labels of the stored values without blocking.
func (f *EntityMultiField) DisplayLabels() []string {
	values := f.acc.Values()
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = f.label(value)
	}
	return out
}

// Watch returns a started resolver for the current values. Close it when the
// labels are no longer displayed.
func (f *EntityMultiField) Watch(ctx context.Context, onChange func([]search.ResolvedLabel)) *search.Resolver {
	var opts []search.ResolverOption
	if f.cfg.Mode == creatable.NameMode {
		opts = append(opts, search.LiteralLabels())
	}
	r := f.svc.NewResolver(f.cfg.Namespace, f.acc.Values(), f.cfg.Fetch, onChange, opts...)
	r.Start(ctx)
	return r
}

// Intents expands the stored values for submission.
func (f *EntityMultiField) Intents() ([]creatable.Intent, error) {
	return creatable.ExpandValues(f.cfg.Mode, f.acc.Values())
}
