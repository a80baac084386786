// Package draft stores form snapshots as bytes so an unfinished form can be
// restored later. Values are kept as the plain strings the form holds;
// pending values keep their encoded form.
package draft

import (
	"fmt"
	"time"

	"github.com/goliatone/go-entity-search/form"
	goerrors "github.com/goliatone/go-errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is the envelope version written by Encode.
const Version = 1

// TextCodeInvalidDraft tags decode failures.
const TextCodeInvalidDraft = "INVALID_DRAFT"

type envelope struct {
	Version int                 `msgpack:"v"`
	SavedAt time.Time           `msgpack:"saved_at"`
	Values  map[string]string   `msgpack:"values,omitempty"`
	Multi   map[string][]string `msgpack:"multi,omitempty"`
}

// Draft is a decoded snapshot with its save time.
type Draft struct {
	Snapshot form.Snapshot
	SavedAt  time.Time
}

// Encode serializes snap stamped with the current time.
func Encode(snap form.Snapshot) ([]byte, error) {
	return EncodeAt(snap, time.Now())
}

// EncodeAt serializes snap stamped with savedAt.
func EncodeAt(snap form.Snapshot, savedAt time.Time) ([]byte, error) {
	data, err := msgpack.Marshal(envelope{
		Version: Version,
		SavedAt: savedAt.UTC(),
		Values:  snap.Values,
		Multi:   snap.Multi,
	})
	if err != nil {
		return nil, fmt.Errorf("draft: encode: %w", err)
	}
	return data, nil
}

// Decode parses data written by Encode.
func Decode(data []byte) (form.Snapshot, error) {
	d, err := DecodeDraft(data)
	if err != nil {
		return form.Snapshot{}, err
	}
	return d.Snapshot, nil
}

// DecodeDraft parses data written by Encode, keeping the save time.
func DecodeDraft(data []byte) (Draft, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Draft{}, goerrors.Wrap(err, goerrors.CategoryValidation, "draft: malformed data").
			WithTextCode(TextCodeInvalidDraft)
	}
	if env.Version != Version {
		return Draft{}, goerrors.New(fmt.Sprintf("draft: unsupported version %d", env.Version), goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidDraft)
	}

	snap := form.Snapshot{Values: env.Values, Multi: env.Multi}
	if snap.Values == nil {
		snap.Values = map[string]string{}
	}
	if snap.Multi == nil {
		snap.Multi = map[string][]string{}
	}
	return Draft{Snapshot: snap, SavedAt: env.SavedAt}, nil
}
