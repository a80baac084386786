// Package cache provides the shared result store used by entity search.
//
// # Overview
//
// This package exports the Store interface, its default sturdyc backed
// implementation and the key composition helpers:
//
//   - Store: a process local, string keyed map of Entry values
//   - KeySerializer: builds stable composite keys from a namespace and segments
//   - Keys: the two key shapes used by search, entity keys and search list keys
//
// Entries carry their own staleness policy. A search result list is usually
// written with a short StaleAfter, while individually addressed entities are
// written with NeverStale and trusted until someone invalidates them. A stale
// entry is still returned by Get so callers can render it while a refresh is
// in flight.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	store.Set(cache.EntityKey("companies", "c1"), entity, cache.NeverStale)
//	entry, ok := store.Get(cache.EntityKey("companies", "c1"))
//
// The store has no lifecycle of its own beyond Close: create it at startup
// and pass it explicitly to whatever needs it. There is no package level
// singleton.
//
// # Key Composition
//
// Keys are built as namespace::segment[::segment...]. Separator characters
// inside ids and queries are percent escaped so an id can never forge a
// search key, and segments longer than MaxSegmentLength are replaced by their
// xxhash digest to keep keys bounded.
//
//	cache.EntityKey("companies", "c1")   // companies::c1
//	cache.SearchKey("companies", "ac")   // companies::search::ac
//
// # Change Notifications
//
// Every Set and every effective Invalidate publishes a Change whose payload
// is the affected key. Subscribers receive changes on a buffered channel for
// the lifetime of the context they pass to Subscribe.
//
// # Error Handling
//
// Misses are reported with a boolean, never as errors. GetOrFetch surfaces the
// fetch function error unchanged, except for ErrNotFound which the store may
// remember as a missing record when MissingRecordStorage is enabled; use
// IsNotFound to test for both.
package cache
