package form

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/creatable"
	"github.com/goliatone/go-entity-search/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var companies = []search.LabeledEntity{
	{ID: "c1", Label: "Acme Corp"},
	{ID: "c2", Label: "Acme Labs"},
	{ID: "c3", Label: "Globex"},
}

func searchCompanies(ctx context.Context, query string) ([]search.LabeledEntity, error) {
	var out []search.LabeledEntity
	for _, c := range companies {
		if strings.Contains(strings.ToLower(c.Label), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func fetchCompany(ctx context.Context, id string) (search.LabeledEntity, error) {
	for _, c := range companies {
		if c.ID == id {
			return c, nil
		}
	}
	return search.LabeledEntity{}, cache.ErrNotFound
}

func newService(t *testing.T) *search.Service {
	t.Helper()
	store, err := cache.NewStore(cache.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return search.NewService(store)
}

func fieldConfig(mode creatable.Mode) EntityFieldConfig {
	return EntityFieldConfig{
		FieldConfig: FieldConfig{Name: "company", Label: "Company"},
		Namespace:   "companies",
		Mode:        mode,
		Creatable:   true,
		Search:      searchCompanies,
		Fetch:       fetchCompany,
		Options:     search.Options{Delay: time.Hour},
	}
}

func typeAndWait(t *testing.T, field interface {
	Input(string)
	Flush()
	SearchState() search.SessionState
}, text string) {
	t.Helper()
	field.Input(text)
	field.Flush()
	require.Eventually(t, func() bool {
		s := field.SearchState()
		return s.DebouncedQuery == text && !s.IsLoading
	}, time.Second, 5*time.Millisecond)
}

func TestEntityField_SelectIdentifierMode(t *testing.T) {
	svc := newService(t)
	state := NewState()
	field, err := NewEntityField(svc, state.Field("company"), fieldConfig(creatable.IdentifierMode))
	require.NoError(t, err)
	t.Cleanup(field.Close)

	typeAndWait(t, field, "acme")
	require.Len(t, field.Options(), 2)

	require.NoError(t, field.Select(field.Options()[1]))
	assert.Equal(t, "c2", state.Get("company"))
	assert.Equal(t, "Acme Labs", field.DisplayLabel())

	intents, err := field.Intents()
	require.NoError(t, err)
	assert.Equal(t, []creatable.Intent{{Action: creatable.ActionLink, ID: "c2"}}, intents)
}

func TestEntityField_SelectNameMode(t *testing.T) {
	svc := newService(t)
	state := NewState()
	field, err := NewEntityField(svc, state.Field("company"), fieldConfig(creatable.NameMode))
	require.NoError(t, err)
	t.Cleanup(field.Close)

	require.NoError(t, field.Select(companies[2]))
	assert.Equal(t, "Globex", state.Get("company"))
	assert.Equal(t, "Globex", field.DisplayLabel())
	_, ok := svc.Entity("companies", "c3")
	assert.False(t, ok, "name mode never needs the cache for display")
}

func TestEntityField_Create(t *testing.T) {
	svc := newService(t)
	state := NewState()
	field, err := NewEntityField(svc, state.Field("company"), fieldConfig(creatable.IdentifierMode))
	require.NoError(t, err)
	t.Cleanup(field.Close)

	typeAndWait(t, field, "acme corp")
	assert.False(t, field.CanCreate(), "an option with the same label exists")
	assert.True(t, errors.Is(field.Create(), ErrCreateNotAllowed))

	typeAndWait(t, field, "Initech ")
	require.True(t, field.CanCreate())
	require.NoError(t, field.Create())

	assert.Equal(t, creatable.EncodePending("Initech"), state.Get("company"))
	assert.Equal(t, "Initech", field.DisplayLabel())

	intents, err := field.Intents()
	require.NoError(t, err)
	assert.Equal(t, []creatable.Intent{{Action: creatable.ActionCreate, Name: "Initech"}}, intents)
}

func TestEntityField_Disabled(t *testing.T) {
	svc := newService(t)
	state := NewState()
	cfg := fieldConfig(creatable.IdentifierMode)
	cfg.Disabled = true
	field, err := NewEntityField(svc, state.Field("company"), cfg)
	require.NoError(t, err)
	t.Cleanup(field.Close)

	assert.ErrorIs(t, field.Select(companies[0]), ErrFieldDisabled)
	assert.ErrorIs(t, field.Clear(), ErrFieldDisabled)
	assert.False(t, field.CanCreate())
	assert.Empty(t, state.Get("company"))
}

func TestEntityField_ResolveLabel(t *testing.T) {
	svc := newService(t)
	state := NewState()
	state.Set("company", "c3")
	field, err := NewEntityField(svc, state.Field("company"), fieldConfig(creatable.IdentifierMode))
	require.NoError(t, err)
	t.Cleanup(field.Close)

	assert.Equal(t, "c3", field.DisplayLabel())
	assert.Equal(t, search.ResolvedLabel{ID: "c3", Label: "Globex"}, field.ResolveLabel(context.Background()))
	assert.Equal(t, "Globex", field.DisplayLabel())
}

func TestNewEntityField_InvalidConfig(t *testing.T) {
	svc := newService(t)
	state := NewState()

	cfg := fieldConfig(creatable.IdentifierMode)
	cfg.Search = nil
	_, err := NewEntityField(svc, state.Field("company"), cfg)
	assert.Error(t, err)

	cfg = fieldConfig(creatable.IdentifierMode)
	cfg.Namespace = ""
	_, err = NewEntityField(svc, state.Field("company"), cfg)
	assert.Error(t, err)
}

func TestEntityMultiField(t *testing.T) {
	svc := newService(t)
	state := NewState()
	cfg := fieldConfig(creatable.IdentifierMode)
	cfg.Name = "partners"
	field, err := NewEntityMultiField(svc, state.MultiField("partners"), cfg)
	require.NoError(t, err)
	t.Cleanup(field.Close)

	typeAndWait(t, field, "acme")
	require.NoError(t, field.Select(field.Options()[0]))
	require.NoError(t, field.Select(field.Options()[0]))
	assert.Equal(t, []string{"c1"}, field.Values())

	typeAndWait(t, field, "Hooli")
	require.True(t, field.CanCreate())
	require.NoError(t, field.Create())
	assert.False(t, field.CanCreate(), "already selected")

	pending := creatable.EncodePending("Hooli")
	assert.Equal(t, []string{"c1", pending}, field.Values())
	assert.Equal(t, []string{"Acme Corp", "Hooli"}, field.DisplayLabels())

	intents, err := field.Intents()
	require.NoError(t, err)
	assert.Equal(t, []creatable.Intent{
		{Action: creatable.ActionLink, ID: "c1"},
		{Action: creatable.ActionCreate, Name: "Hooli"},
	}, intents)

	require.NoError(t, field.Remove("c1"))
	assert.Equal(t, []string{pending}, field.Values())
}

func TestEntityMultiField_Watch(t *testing.T) {
	svc := newService(t)
	state := NewState()
	state.SetValues("partners", []string{"c3", creatable.EncodePending("Hooli")})

	cfg := fieldConfig(creatable.IdentifierMode)
	cfg.Name = "partners"
	field, err := NewEntityMultiField(svc, state.MultiField("partners"), cfg)
	require.NoError(t, err)
	t.Cleanup(field.Close)

	r := field.Watch(context.Background(), nil)
	t.Cleanup(r.Close)

	require.Eventually(t, func() bool {
		labels := r.Labels()
		return labels[0].Label == "Globex" && labels[1].Label == "Hooli"
	}, time.Second, 5*time.Millisecond)
}

func TestEntityMultiField_WatchNameModeUsesValues(t *testing.T) {
	svc := newService(t)
	svc.Seed("companies", search.LabeledEntity{ID: "urgent", Label: "Some Other Tag"})

	state := NewState()
	state.SetValues("tags", []string{"urgent"})

	cfg := fieldConfig(creatable.NameMode)
	cfg.Name = "tags"
	field, err := NewEntityMultiField(svc, state.MultiField("tags"), cfg)
	require.NoError(t, err)
	t.Cleanup(field.Close)

	r := field.Watch(context.Background(), nil)
	t.Cleanup(r.Close)

	assert.Equal(t, []string{"urgent"}, field.DisplayLabels())
	assert.Equal(t, []search.ResolvedLabel{{ID: "urgent", Label: "urgent"}}, r.Labels())
}
