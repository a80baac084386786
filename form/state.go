package form

import (
	"maps"
	"slices"
	"sync"
)

// Accessor reads and writes one single value field.
type Accessor interface {
	Value() string
	SetValue(value string)
	Error() string
}

// MultiAccessor reads and writes one multi value field.
type MultiAccessor interface {
	Values() []string
	SetValues(values []string)
	Error() string
}

// Snapshot is a copy of every field value of a State.
type Snapshot struct {
	Values map[string]string   `msgpack:"values" json:"values"`
	Multi  map[string][]string `msgpack:"multi" json:"multi"`
}

// State is an in-memory form state.
type State struct {
	mu       sync.RWMutex
	values   map[string]string
	multi    map[string][]string
	errors   map[string]string
	onChange func(name string)
}

// StateOption customizes a State.
type StateOption func(*State)

// OnChange registers a callback invoked with the field name after every
// value write.
func OnChange(fn func(name string)) StateOption {
	return func(s *State) {
		s.onChange = fn
	}
}

// NewState returns an empty form state.
func NewState(opts ...StateOption) *State {
	s := &State{
		values: make(map[string]string),
		multi:  make(map[string][]string),
		errors: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Field returns an accessor bound to name.
func (s *State) Field(name string) Accessor {
	return field{state: s, name: name}
}

// MultiField returns a multi value accessor bound to name.
func (s *State) MultiField(name string) MultiAccessor {
	return multiField{state: s, name: name}
}

// Get returns the single value of name.
func (s *State) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// GetValues returns a copy of the multi value of name.
func (s *State) GetValues(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.multi[name])
}

// Set writes a single value. Integrators use it for cross-field resets.
func (s *State) Set(name, value string) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	s.changed(name)
}

// SetValues writes a multi value.
func (s *State) SetValues(name string, values []string) {
	s.mu.Lock()
	s.multi[name] = slices.Clone(values)
	s.mu.Unlock()
	s.changed(name)
}

// SetError sets or, with an empty message, clears the error of name.
func (s *State) SetError(name, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.errors, name)
		return
	}
	s.errors[name] = message
}

// Error returns the error message of name.
func (s *State) Error(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[name]
}

// Snapshot copies every value. Errors are not included.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Values: maps.Clone(s.values),
		Multi:  make(map[string][]string, len(s.multi)),
	}
	for name, values := range s.multi {
		snap.Multi[name] = slices.Clone(values)
	}
	return snap
}

// Restore replaces every value with the snapshot and clears errors.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	s.values = make(map[string]string, len(snap.Values))
	for name, value := range snap.Values {
		s.values[name] = value
	}
	s.multi = make(map[string][]string, len(snap.Multi))
	for name, values := range snap.Multi {
		s.multi[name] = slices.Clone(values)
	}
	s.errors = make(map[string]string)

	names := make([]string, 0, len(s.values)+len(s.multi))
	for name := range s.values {
		names = append(names, name)
	}
	for name := range s.multi {
		names = append(names, name)
	}
	s.mu.Unlock()

	slices.Sort(names)
	for _, name := range names {
		s.changed(name)
	}
}

func (s *State) changed(name string) {
	if s.onChange != nil {
		s.onChange(name)
	}
}

type field struct {
	state *State
	name  string
}

func (f field) Value() string         { return f.state.Get(f.name) }
func (f field) SetValue(value string) { f.state.Set(f.name, value) }
func (f field) Error() string         { return f.state.Error(f.name) }

type multiField struct {
	state *State
	name  string
}

func (f multiField) Values() []string          { return f.state.GetValues(f.name) }
func (f multiField) SetValues(values []string) { f.state.SetValues(f.name, values) }
func (f multiField) Error() string             { return f.state.Error(f.name) }
