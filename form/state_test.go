package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Accessors(t *testing.T) {
	var changed []string
	state := NewState(OnChange(func(name string) { changed = append(changed, name) }))

	company := state.Field("company")
	tags := state.MultiField("tags")

	company.SetValue("c1")
	tags.SetValues([]string{"a", "b"})
	state.Set("contact", "")

	assert.Equal(t, "c1", company.Value())
	assert.Equal(t, "c1", state.Get("company"))
	assert.Equal(t, []string{"a", "b"}, tags.Values())
	assert.Equal(t, []string{"company", "tags", "contact"}, changed)

	values := tags.Values()
	values[0] = "mutated"
	assert.Equal(t, "a", tags.Values()[0])
}

func TestState_Errors(t *testing.T) {
	state := NewState()
	company := state.Field("company")

	state.SetError("company", "required")
	assert.Equal(t, "required", company.Error())

	state.SetError("company", "")
	assert.Empty(t, company.Error())
}

func TestState_SnapshotRestore(t *testing.T) {
	state := NewState()
	state.Set("company", "__new:Initech")
	state.SetValues("tags", []string{"t1"})
	state.SetError("company", "bad")

	snap := state.Snapshot()
	state.Set("company", "c9")
	state.SetValues("tags", nil)

	var restored []string
	other := NewState(OnChange(func(name string) { restored = append(restored, name) }))
	other.Restore(snap)
	state.Restore(snap)

	assert.Equal(t, "__new:Initech", state.Get("company"))
	assert.Equal(t, []string{"t1"}, state.GetValues("tags"))
	assert.Empty(t, state.Error("company"))
	assert.Equal(t, []string{"company", "tags"}, restored)

	require.NotNil(t, snap.Values)
	snap.Multi["tags"][0] = "mutated"
	assert.Equal(t, "t1", state.GetValues("tags")[0])
}

func TestFieldConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     FieldConfig
		wantErr bool
	}{
		{name: "valid", cfg: FieldConfig{Name: "company_id", Label: "Company"}},
		{name: "dotted name", cfg: FieldConfig{Name: "address.country"}},
		{name: "missing name", cfg: FieldConfig{Label: "Company"}, wantErr: true},
		{name: "invalid name", cfg: FieldConfig{Name: "1company"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
