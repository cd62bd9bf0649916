package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// ErrEmptyAccessToken is returned when a mutation would leave a signed-in user
// without an access token.
var ErrEmptyAccessToken = errors.New("empty access token")

// ErrNilUser is returned by [Store.SetSession] when no profile is given.
var ErrNilUser = errors.New("nil user profile")

// Store is the process-wide session state container. It is safe for concurrent
// use; construct one per client with [NewStore].
//
// Mutations are applied in memory first, then persisted, then published to
// subscribers, all in mutation order. A persistence failure is returned to the
// caller but does not roll back the in-memory state.
type Store struct {
	storage   Storage
	namespace string
	logger    *slog.Logger

	mu    sync.RWMutex
	state Session

	// persistMu is taken before mu is released so storage writes and
	// notifications observe the same order as in-memory mutations.
	persistMu sync.Mutex

	subMu   sync.Mutex
	subs    map[uint64]func(Session)
	nextSub uint64

	loadOnce sync.Once
	loadErr  error
}

// Option configures a [Store].
type Option func(*Store)

// WithNamespace overrides [DefaultNamespace].
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty [Store] persisting through storage. A nil storage
// falls back to [MemoryStorage].
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		storage:   storage,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
		subs:      make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Namespace returns the storage key of this store.
func (s *Store) Namespace() string {
	return s.namespace
}

// Get returns a copy of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// SetAccessToken replaces the access token and leaves the user untouched.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyAccessToken
	}
	return s.mutate(ctx, func(next *Session) bool {
		if next.AccessToken == token {
			return false
		}
		next.AccessToken = token
		return true
	})
}

// SetSession atomically replaces both user and token. Used after login.
func (s *Store) SetSession(ctx context.Context, user *Profile, token string) error {
	if user == nil {
		return ErrNilUser
	}
	if token == "" {
		return ErrEmptyAccessToken
	}
	u := *user
	return s.mutate(ctx, func(next *Session) bool {
		next.User = &u
		next.AccessToken = token
		return true
	})
}

// UpdateUser shallow-merges patch into the current profile. It is a no-op when
// no user is signed in.
func (s *Store) UpdateUser(ctx context.Context, patch ProfilePatch) error {
	return s.mutate(ctx, func(next *Session) bool {
		if next.User == nil {
			return false
		}
		patch.apply(next.User)
		return true
	})
}

// Clear resets the store to an empty session.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(next *Session) bool {
		next.User = nil
		next.AccessToken = ""
		return true
	})
}

// Load rehydrates the session from storage. Only the first call reads storage;
// later calls return the first result. A corrupt or invariant-violating record
// is deleted and the store stays empty.
func (s *Store) Load(ctx context.Context) error {
	s.loadOnce.Do(func() {
		s.loadErr = s.load(ctx)
	})
	return s.loadErr
}

func (s *Store) load(ctx context.Context) error {
	data, err := s.storage.Load(ctx, s.namespace)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}

	restored, err := Decode(data)
	if err != nil {
		s.logger.Warn("goSession: discarding unreadable session record",
			"namespace", s.namespace,
			"error", err,
		)
		if delErr := s.storage.Delete(ctx, s.namespace); delErr != nil {
			return delErr
		}
		return nil
	}

	s.mu.Lock()
	s.state = restored
	snapshot := s.state.clone()
	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()

	s.publish(snapshot)
	return nil
}

// Subscribe registers fn to be called with a copy of the session after every
// mutation. fn must not mutate the store. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, fn func(next *Session) bool) error {
	s.mu.Lock()
	next := s.state.clone()
	if !fn(&next) {
		s.mu.Unlock()
		return nil
	}
	if next.User != nil && next.AccessToken == "" {
		s.mu.Unlock()
		return ErrEmptyAccessToken
	}
	s.state = next
	snapshot := next.clone()

	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()

	err := s.persist(ctx, snapshot)
	s.publish(snapshot)
	return err
}

func (s *Store) persist(ctx context.Context, snapshot Session) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, s.namespace, data); err != nil {
		s.logger.Warn("goSession: session persistence failed",
			"namespace", s.namespace,
			"error", err,
		)
		return err
	}
	return nil
}

func (s *Store) publish(snapshot Session) {
	s.subMu.Lock()
	subs := make([]func(Session), 0, len(s.subs))
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot.clone())
	}
}
