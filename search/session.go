package search

import (
	"context"
	"slices"
	"sync"

	"github.com/goliatone/go-entity-search/debounce"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionState is a snapshot of a search field.
type SessionState struct {
	RawQuery       string
	DebouncedQuery string
	IsLoading      bool
	Options        []LabeledEntity
	Err            error
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithOnChange registers a callback invoked after every state change.
// It runs on the goroutine that produced the change.
func WithOnChange(fn func(SessionState)) SessionOption {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithSessionOptions overrides the namespace options for one session.
func WithSessionOptions(opts Options) SessionOption {
	return func(s *Session) {
		s.opts = opts.Merge(s.opts)
	}
}

// Session is the per field search state. Raw input is debounced; every
// settled query gets a new request token and only the result carrying the
// current token is applied, so a slow response for an older query can never
// overwrite a newer one.
type Session struct {
	id        string
	namespace string
	svc       *Service
	fn        SearchFunc
	opts      Options
	logger    logrus.FieldLogger
	onChange  func(SessionState)
	debouncer *debounce.Controller

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  SessionState
	token  uint64
	closed bool
}

// NewSession creates a search session for namespace. Close it when the
// field goes away.
func (s *Service) NewSession(namespace string, fn SearchFunc, opts ...SessionOption) (*Session, error) {
	if fn == nil {
		return nil, ErrNoSearchFunc
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		id:        uuid.NewString(),
		namespace: namespace,
		svc:       s,
		fn:        fn,
		opts:      s.Options(namespace),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(sess)
	}
	if err := sess.opts.Validate(); err != nil {
		cancel()
		return nil, err
	}

	sess.logger = s.logger.WithFields(logrus.Fields{
		"namespace": namespace,
		"session":   sess.id,
	})

	debouncer, err := debounce.New(sess.opts.debounce(), sess.settle)
	if err != nil {
		cancel()
		return nil, err
	}
	sess.debouncer = debouncer
	return sess, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Input records a keystroke.
func (s *Session) Input(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.RawQuery = text
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	s.debouncer.Input(text)
}

// Flush settles pending input without waiting for the debounce delay.
func (s *Session) Flush() {
	s.debouncer.Flush()
}

// State returns a copy of the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the session. Results that arrive afterwards are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Stop()
	s.cancel()
}

func (s *Session) settle(query string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.token++
	token := s.token
	s.state.DebouncedQuery = query
	s.state.Err = nil

	if query == "" {
		s.state.Options = nil
		s.state.IsLoading = false
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snapshot)
		return
	}

	items, fresh, ok := s.svc.Lookup(s.namespace, query)
	if ok {
		s.state.Options = items
	}
	s.state.IsLoading = !(ok && fresh)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	if snapshot.IsLoading {
		go s.run(token, query)
	}
}

func (s *Session) run(token uint64, query string) {
	items, err := s.svc.fetch(s.ctx, s.namespace, query, s.fn, s.opts)

	s.mu.Lock()
	if s.closed || token != s.token {
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{
			"query": query,
			"token": token,
		}).Debug("discarding superseded search result")
		return
	}

	s.state.IsLoading = false
	if err != nil {
		s.state.Err = err
	} else {
		s.state.Options = items
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Session) snapshotLocked() SessionState {
	out := s.state
	out.Options = slices.Clone(s.state.Options)
	return out
}

func (s *Session) notify(state SessionState) {
	if s.onChange != nil {
		s.onChange(state)
	}
}
