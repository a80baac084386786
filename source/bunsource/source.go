// Package bunsource adapts a go-repository-bun repository into the lookup
// functions used by search. It only reads.
package bunsource

import (
	"context"
	"strings"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/search"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// DefaultLimit caps the number of records a search returns.
const DefaultLimit = 20

// Finder is the read side of repository.Repository.
type Finder[T any] interface {
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
}

var _ Finder[any] = (repository.Repository[any])(nil)

// Source searches records of T by a text column.
type Source[T any] struct {
	Repo Finder[T]
	// Column is matched case-insensitively against the query.
	Column string
	// OrderBy sorts matches; defaults to Column.
	OrderBy string
	Limit   int
	ToEntry func(T) search.LabeledEntity
	// Criteria are applied to every search and fetch, e.g. tenant scoping.
	Criteria []repository.SelectCriteria
}

// Namespace derives the cache namespace from T.
func (s Source[T]) Namespace() string {
	return search.NamespaceOf[T]()
}

// SearchFunc returns a search.SearchFunc matching Column against the query.
func (s Source[T]) SearchFunc() search.SearchFunc {
	return search.Mapped(func(ctx context.Context, query string) ([]T, error) {
		criteria := append(s.base(), s.match(query))
		records, _, err := s.Repo.List(ctx, criteria...)
		return records, err
	}, s.ToEntry)
}

// FetchFunc returns a search.FetchFunc loading one record by id. Missing
// records are reported as cache.ErrNotFound.
func (s Source[T]) FetchFunc() search.FetchFunc {
	return search.MappedFetch(func(ctx context.Context, id string) (T, error) {
		record, err := s.Repo.GetByID(ctx, id, s.base()...)
		if repository.IsRecordNotFound(err) {
			return record, cache.ErrNotFound
		}
		return record, err
	}, s.ToEntry)
}

func (s Source[T]) base() []repository.SelectCriteria {
	return append([]repository.SelectCriteria(nil), s.Criteria...)
}

func (s Source[T]) match(query string) repository.SelectCriteria {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	order := s.OrderBy
	if order == "" {
		order = s.Column
	}
	pattern := "%" + escapeLike(query) + "%"

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("? ILIKE ?", bun.Ident(s.Column), pattern).
			OrderExpr("? ASC", bun.Ident(order)).
			Limit(limit)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
