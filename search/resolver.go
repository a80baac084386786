package search

import (
	"context"
	"sync"

	"github.com/goliatone/go-entity-search/cache"
	"github.com/goliatone/go-entity-search/creatable"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ResolvedLabel is the label state of one identifier.
type ResolvedLabel struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsLoading bool   `json:"is_loading"`
	Pending   bool   `json:"pending,omitempty"`
}

// Resolver keeps the labels of an ordered list of ids up to date.
//
// Pending values are decoded without touching the cache. Every other id is
// read from its entity key; misses are fetched through the fallback, once per
// distinct id, each independently of the others. The resolver watches the
// entity keys of its ids and recomputes whenever one of them changes.
type Resolver struct {
	id        string
	svc       *Service
	namespace string
	ids       []string
	fallback  FetchFunc
	onChange  func([]ResolvedLabel)
	logger    logrus.FieldLogger

	// watched maps entity keys to ids; it is never written after construction.
	watched map[string]string

	mu       sync.Mutex
	inflight map[string]bool
	failed   map[string]bool
	started  bool
	closed   bool
	cancel   context.CancelFunc

	literal bool

	emitMu sync.Mutex
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// LiteralLabels makes every value its own label. The resolver then never
// reads the cache, watches keys or fetches.
func LiteralLabels() ResolverOption {
	return func(r *Resolver) {
		r.literal = true
		r.fallback = nil
	}
}

// NewResolver creates a resolver for ids. onChange may be nil.
func (s *Service) NewResolver(namespace string, ids []string, fallback FetchFunc, onChange func([]ResolvedLabel), opts ...ResolverOption) *Resolver {
	r := &Resolver{
		id:        uuid.NewString(),
		svc:       s,
		namespace: namespace,
		ids:       append([]string(nil), ids...),
		fallback:  fallback,
		onChange:  onChange,
		watched:   make(map[string]string),
		inflight:  make(map[string]bool),
		failed:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = s.logger.WithFields(logrus.Fields{
		"namespace": namespace,
		"resolver":  r.id,
	})

	for _, id := range r.ids {
		if r.literal || id == "" || creatable.IsPending(id) {
			continue
		}
		r.watched[s.keys.Entity(namespace, id)] = id
	}
	return r
}

// Start subscribes to cache changes and fetches missing ids. The resolver
// stops when ctx is done or Close is called.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.closed {
		r.mu.Unlock()
		return
	}
	r.started = true
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	if len(r.watched) > 0 {
		events := r.svc.store.Subscribe(ctx)
		go r.watch(ctx, events)
	}

	missing := r.missing()
	r.emit()
	for _, id := range missing {
		go r.fetch(ctx, id)
	}
}

// Labels returns the current labels in input order.
func (r *Resolver) Labels() []ResolvedLabel {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ResolvedLabel, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.labelLocked(id)
	}
	return out
}

// Close stops watching and ignores outstanding fetches.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Resolver) labelLocked(id string) ResolvedLabel {
	switch {
	case id == "":
		return ResolvedLabel{}
	case r.literal:
		return ResolvedLabel{ID: id, Label: id}
	case creatable.IsPending(id):
		return ResolvedLabel{ID: id, Label: creatable.DecodePending(id), Pending: true}
	}

	if entity, ok := r.svc.Entity(r.namespace, id); ok {
		label := entity.Label
		if label == "" {
			label = id
		}
		return ResolvedLabel{ID: id, Label: label}
	}
	return ResolvedLabel{ID: id, Label: id, IsLoading: r.inflight[id]}
}

// missing marks every distinct uncached id as in flight and returns them.
func (r *Resolver) missing() []string {
	if r.fallback == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, id := range r.watched {
		if r.inflight[id] || r.failed[id] {
			continue
		}
		if _, ok := r.svc.Entity(r.namespace, id); ok {
			continue
		}
		r.inflight[id] = true
		out = append(out, id)
	}
	return out
}

func (r *Resolver) fetch(ctx context.Context, id string) {
	_, err := r.svc.FetchEntity(ctx, r.namespace, id, r.fallback)

	r.mu.Lock()
	delete(r.inflight, id)
	if err != nil {
		r.failed[id] = true
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.WithField("id", id).WithError(err).Debug("label fallback fetch failed")
	}
	r.emit()
}

func (r *Resolver) watch(ctx context.Context, events <-chan cache.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			id, watched := r.watched[evt.Payload]
			if !watched {
				continue
			}

			if evt.Type == cache.ChangeDelete {
				r.mu.Lock()
				delete(r.failed, id)
				r.mu.Unlock()
				for _, missingID := range r.missing() {
					go r.fetch(ctx, missingID)
				}
			}
			r.emit()
		}
	}
}

func (r *Resolver) emit() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed || r.onChange == nil {
		return
	}
	r.onChange(r.Labels())
}

// ResolveLabels resolves ids to labels, waiting for fallback fetches of
// uncached ids. Repeated ids are fetched once and keep their positions.
func (s *Service) ResolveLabels(ctx context.Context, namespace string, ids []string, fallback FetchFunc) []ResolvedLabel {
	r := s.NewResolver(namespace, ids, fallback, nil)

	var wg sync.WaitGroup
	for _, id := range r.missing() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.fetch(ctx, id)
		}(id)
	}
	wg.Wait()

	return r.Labels()
}
