package creatable

import (
	"strings"

	"golang.org/x/text/cases"
)

// Mode selects what a creatable field stores. It is chosen per field and
// never inferred from the value.
type Mode int

const (
	// IdentifierMode stores option ids for picks and encoded pending values
	// for creates.
	IdentifierMode Mode = iota
	// NameMode stores labels for picks and the raw typed text for creates.
	NameMode
)

func (m Mode) String() string {
	if m == NameMode {
		return "name"
	}
	return "identifier"
}

// PickValue returns the value stored when an existing option is chosen.
func (m Mode) PickValue(id, label string) string {
	if m == NameMode {
		return label
	}
	return id
}

// CreateValue returns the value stored when text is committed as a new entry.
func (m Mode) CreateValue(text string) string {
	if m == NameMode {
		return text
	}
	return EncodePending(text)
}

// CreateCheck holds everything needed to decide whether a "create new"
// affordance is offered.
type CreateCheck struct {
	Text     string
	Loading  bool
	Labels   []string
	Selected []string
	Multiple bool
	Mode     Mode
}

// Visible reports whether the create affordance should be shown: the typed
// text is non-empty, no search is loading, no option label matches the text
// case-insensitively and, for multi value fields, the value that would be
// created is not already selected.
func (c CreateCheck) Visible() bool {
	text := strings.TrimSpace(c.Text)
	if text == "" || c.Loading {
		return false
	}

	folded := fold(text)
	for _, label := range c.Labels {
		if fold(strings.TrimSpace(label)) == folded {
			return false
		}
	}

	if c.Multiple {
		candidate := c.Mode.CreateValue(text)
		for _, selected := range c.Selected {
			if selected == candidate {
				return false
			}
		}
	}

	return true
}

// EqualFold compares two labels the same way Visible does.
func EqualFold(a, b string) bool {
	return fold(a) == fold(b)
}

func fold(s string) string {
	// cases.Caser is stateful, so a fresh one is used per call
	return cases.Fold().String(s)
}
