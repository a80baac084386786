package search

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-entity-search/cache"
	goerrors "github.com/goliatone/go-errors"
)

// TextCodeLookupFailure tags errors produced when an integrator lookup fails.
const TextCodeLookupFailure = "LOOKUP_FAILURE"

// ErrNoSearchFunc is returned when a search is issued without a lookup function.
var ErrNoSearchFunc = errors.New("search: nil search function")

func lookupFailure(namespace, target string, err error) error {
	category := goerrors.CategoryExternal
	if cache.IsNotFound(err) {
		category = goerrors.CategoryNotFound
	}
	return goerrors.Wrap(err, category, fmt.Sprintf("lookup in %s for %q failed", namespace, target)).
		WithTextCode(TextCodeLookupFailure)
}

// IsLookupFailure reports whether err comes from a failed integrator lookup.
func IsLookupFailure(err error) bool {
	var target *goerrors.Error
	if !errors.As(err, &target) {
		return false
	}
	return target.TextCode == TextCodeLookupFailure
}
