// Package creatable encodes values that may refer either to a persisted
// entity or to one the user asked to create but that does not exist yet.
//
// Inside the library a field value is a Value, a tagged union of Existing(id)
// and Pending(name). The flat string form, PendingPrefix followed by the
// name, only exists at serialization edges such as draft storage or URL
// parameters, where a field has to be a single string.
//
// Precondition: persisted ids must never start with PendingPrefix. The codec
// can not detect a violation; it is a contract on the id generation scheme.
package creatable

import (
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// PendingPrefix is the reserved marker that starts every encoded pending value.
const PendingPrefix = "__new:"

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindExisting
	KindPending
)

func (k Kind) String() string {
	switch k {
	case KindExisting:
		return "existing"
	case KindPending:
		return "pending"
	default:
		return "none"
	}
}

// Value is either an existing entity id or the name of an entity to create.
// The zero Value is empty.
type Value struct {
	kind Kind
	text string
}

// Existing returns a Value referring to a persisted entity.
// An empty id yields the zero Value.
func Existing(id string) Value {
	if id == "" {
		return Value{}
	}
	return Value{kind: KindExisting, text: id}
}

// Pending returns a Value for an entity that still has to be created.
func Pending(name string) Value {
	return Value{kind: KindPending, text: name}
}

// Parse decodes the flat string form produced by Value.String.
func Parse(s string) Value {
	if name, ok := strings.CutPrefix(s, PendingPrefix); ok {
		return Pending(name)
	}
	return Existing(s)
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is empty.
func (v Value) IsZero() bool { return v.kind == KindNone }

// IsPending reports whether v is a create request.
func (v Value) IsPending() bool { return v.kind == KindPending }

// ID returns the persisted id when v is Existing.
func (v Value) ID() (string, bool) {
	if v.kind != KindExisting {
		return "", false
	}
	return v.text, true
}

// Name returns the requested name when v is Pending.
func (v Value) Name() (string, bool) {
	if v.kind != KindPending {
		return "", false
	}
	return v.text, true
}

// String returns the flat serialized form.
func (v Value) String() string {
	switch v.kind {
	case KindPending:
		return PendingPrefix + v.text
	case KindExisting:
		return v.text
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Value) UnmarshalText(text []byte) error {
	*v = Parse(string(text))
	return nil
}

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack stores v as its flat string form.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(v.String())
}

// DecodeMsgpack reads the flat string form.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	*v = Parse(s)
	return nil
}

// EncodePending returns the flat form of Pending(name).
func EncodePending(name string) string {
	return Pending(name).String()
}

// DecodePending returns the name embedded in a pending value, or "" when
// value is not pending.
func DecodePending(value string) string {
	name, _ := Parse(value).Name()
	return name
}

// IsPending reports whether value is an encoded pending value.
func IsPending(value string) bool {
	return strings.HasPrefix(value, PendingPrefix)
}
