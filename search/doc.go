// Package search resolves entity searches and identifier labels through a
// shared cache.Store.
//
// A Service owns no data. Integrators hand it a SearchFunc for free text
// queries and a FetchFunc for single identifiers; the service caches what
// they return under namespaced keys and serves later reads from the cache:
//
//	svc := search.NewService(store, search.WithNamespace("companies", search.Options{
//		StaleTime: time.Minute,
//	}))
//
//	items, err := svc.Search(ctx, "companies", "acme", companiesSearch)
//	label := svc.GetLabel("companies", "c1")
//
// Sessions wrap Search for an interactive field: raw input is debounced,
// cached lists are displayed immediately and only the newest query can
// update the displayed options. Resolvers keep a list of selected ids
// labelled as entities arrive in the cache, whichever component wrote them.
//
// Failed lookups are returned as errors for which IsLookupFailure reports
// true. They never modify the cache.
package search
