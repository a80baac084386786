package creatable

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Action is the explicit intent a submitted identifier expands into.
type Action string

const (
	ActionCreate Action = "create"
	ActionLink   Action = "link"
)

// Intent is what leaves the form boundary in place of an identifier value.
type Intent struct {
	Action Action `json:"action" msgpack:"action"`
	ID     string `json:"id,omitempty" msgpack:"id,omitempty"`
	Name   string `json:"name,omitempty" msgpack:"name,omitempty"`
}

// ErrUnexpandedSentinel is reported when an encoded pending value would
// reach the persistence layer as a plain id.
var ErrUnexpandedSentinel = errors.New("creatable: encoded pending value in link intent")

// Validate checks that the intent is complete and carries no sentinel.
func (i Intent) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Action, validation.Required, validation.In(ActionCreate, ActionLink)),
		validation.Field(&i.ID,
			validation.When(i.Action == ActionLink, validation.Required, validation.By(notPending)),
			validation.When(i.Action == ActionCreate, validation.Empty),
		),
		validation.Field(&i.Name,
			validation.When(i.Action == ActionCreate, validation.Required),
			validation.When(i.Action == ActionLink, validation.Empty),
		),
	)
}

func notPending(value any) error {
	s, _ := value.(string)
	if IsPending(s) {
		return ErrUnexpandedSentinel
	}
	return nil
}

// ToIntent expands v into a create or link intent.
func ToIntent(v Value) (Intent, error) {
	var intent Intent
	switch v.Kind() {
	case KindPending:
		name, _ := v.Name()
		intent = Intent{Action: ActionCreate, Name: name}
	case KindExisting:
		id, _ := v.ID()
		intent = Intent{Action: ActionLink, ID: id}
	default:
		return Intent{}, goerrors.New("creatable: empty value has no intent", goerrors.CategoryValidation).
			WithTextCode("EMPTY_VALUE")
	}

	if err := intent.Validate(); err != nil {
		return Intent{}, goerrors.Wrap(err, goerrors.CategoryValidation, "creatable: invalid intent").
			WithTextCode("INVALID_INTENT")
	}
	return intent, nil
}

// ExpandValues turns the raw stored values of a field into intents.
// Empty values are skipped. In NameMode every value is a plain label and
// expands into a create intent; callers that resolve names to existing
// records do so on their side of the boundary.
func ExpandValues(mode Mode, raw []string) ([]Intent, error) {
	intents := make([]Intent, 0, len(raw))
	for idx, s := range raw {
		if s == "" {
			continue
		}

		v := Parse(s)
		if mode == NameMode {
			v = Pending(s)
		}

		intent, err := ToIntent(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", idx, err)
		}
		intents = append(intents, intent)
	}
	return intents, nil
}
