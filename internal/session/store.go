// Package session keeps the client side view of who is signed in and with
// which role.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"farmlink/internal/models"

	"go.uber.org/zap"
)

// IdentityProvider authenticates users and streams auth state changes.
// Subscribe must emit the current session (present or absent) first.
type IdentityProvider interface {
	SignIn(ctx context.Context, creds models.Credentials) (*models.Identity, error)
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.Identity, error)
	SignOut(ctx context.Context) error
	Subscribe() (<-chan models.AuthEvent, func())
}

// RoleStore looks up the stored role and profile of a user.
type RoleStore interface {
	LookupRole(ctx context.Context, userID string) (models.Role, error)
	LookupProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// DefaultLoadingTimeout bounds how long Loading stays true without a session value.
const DefaultLoadingTimeout = 5 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLoadingTimeout overrides DefaultLoadingTimeout.
func WithLoadingTimeout(d time.Duration) Option {
	return func(s *Store) { s.loadingTimeout = d }
}

type resolution struct {
	generation uint64
	session    models.Session
}

// Store holds the process-wide session. One goroutine consumes the provider's
// change stream; each event's role lookup runs on its own goroutine and reports
// back through a channel, so the provider is never blocked by lookups.
type Store struct {
	provider       IdentityProvider
	roles          RoleStore
	logger         *zap.Logger
	loadingTimeout time.Duration

	mu         sync.RWMutex
	state      models.Session
	generation uint64
	observers  map[int]chan models.Session
	nextID     int

	ctx          context.Context
	cancel       context.CancelFunc
	cancelEvents func()
	results      chan resolution
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewStore creates the store and starts listening to the provider.
func NewStore(provider IdentityProvider, roles RoleStore, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		provider:       provider,
		roles:          roles,
		logger:         zap.NewNop(),
		loadingTimeout: DefaultLoadingTimeout,
		state:          models.NewSession(),
		observers:      make(map[int]chan models.Session),
		ctx:            ctx,
		cancel:         cancel,
		results:        make(chan resolution),
	}
	for _, opt := range opts {
		opt(s)
	}

	events, cancelEvents := provider.Subscribe()
	s.cancelEvents = cancelEvents

	s.wg.Add(1)
	go s.run(events)
	return s
}

// Snapshot returns the current session.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) run(events <-chan models.AuthEvent) {
	defer s.wg.Done()

	timer := time.NewTimer(s.loadingTimeout)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)

		case res := <-s.results:
			s.apply(res.generation, res.session)

		case <-timer.C:
			s.mu.Lock()
			if s.state.Loading {
				s.logger.Warn("identity provider did not answer in time, giving up on loading", zap.Duration("timeout", s.loadingTimeout))
				s.state.Loading = false
				s.publishLocked()
			}
			s.mu.Unlock()
		}
	}
}

func (s *Store) handleEvent(ev models.AuthEvent) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.logger.Debug("auth event", zap.String("type", string(ev.Type)), zap.Bool("has_identity", ev.Identity != nil))

	if ev.Identity == nil || ev.Type == models.AuthSignedOut {
		s.apply(gen, models.Session{Role: models.RoleNone})
		return
	}

	identity := *ev.Identity
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess := s.resolve(s.ctx, &identity)
		select {
		case s.results <- resolution{generation: gen, session: sess}:
		case <-s.ctx.Done():
		}
	}()
}

// apply installs sess unless a newer event superseded it. Loading only ever moves
// from true to false.
func (s *Store) apply(gen uint64, sess models.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	sess.Loading = false
	s.state = sess
	s.publishLocked()
	return true
}

// resolve builds the session of an identity: stored role, else the role in the
// provider metadata, else consumer.
func (s *Store) resolve(ctx context.Context, identity *models.Identity) models.Session {
	role, err := s.roles.LookupRole(ctx, identity.UserID)
	if err != nil || !role.Valid() {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("role lookup failed", zap.String("user_id", identity.UserID), zap.Error(err))
		}
		role = identity.Metadata.Role
		if !role.Valid() {
			role = models.RoleConsumer
		}
	}

	fullName := ""
	if profile, err := s.roles.LookupProfile(ctx, identity.UserID); err == nil && profile != nil {
		fullName = profile.FullName
	}
	if fullName == "" {
		fullName = identity.Metadata.FullName
	}

	return models.Session{
		UserID:          identity.UserID,
		Email:           identity.Email,
		Role:            role,
		IsAuthenticated: true,
		UserName:        models.DisplayName(fullName, identity.Email),
		Token:           identity.Token,
	}
}

// SignIn authenticates and resolves the session before returning.
func (s *Store) SignIn(ctx context.Context, creds models.Credentials) (models.Session, error) {
	identity, err := s.provider.SignIn(ctx, creds)
	if err != nil {
		return s.Snapshot(), err
	}
	return s.settle(ctx, identity), nil
}

// SignUp creates the account and resolves the session before returning.
func (s *Store) SignUp(ctx context.Context, req models.SignUpRequest) (models.Session, error) {
	identity, err := s.provider.SignUp(ctx, req)
	if err != nil {
		return s.Snapshot(), err
	}
	return s.settle(ctx, identity), nil
}

func (s *Store) settle(ctx context.Context, identity *models.Identity) models.Session {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	// If a provider event for the same sign-in raced ahead, that event owns
	// the stored state and the caller still gets its own resolution.
	sess := s.resolve(ctx, identity)
	s.apply(gen, sess)
	sess.Loading = false
	return sess
}

// SignOut clears the session locally. It always succeeds; a provider failure is
// only logged.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.state.Clear()
	s.state.Loading = false
	s.publishLocked()
	s.mu.Unlock()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("sign out failed at provider, session cleared locally", zap.Error(err))
	}
}

// ObserveAuthChanges subscribes to session snapshots, starting with the current
// one. A slow observer only sees the latest snapshot.
func (s *Store) ObserveAuthChanges() (<-chan models.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan models.Session, 1)
	ch <- s.state
	s.observers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.observers[id]; ok {
			delete(s.observers, id)
			close(c)
		}
	}
	return ch, cancel
}

// publishLocked replaces any unread snapshot with the current one. s.mu must be held.
func (s *Store) publishLocked() {
	for _, ch := range s.observers {
		select {
		case ch <- s.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}

// Close stops the event loop, waits for pending lookups and closes all observers.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.cancelEvents()
		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		for id, ch := range s.observers {
			delete(s.observers, id)
			close(ch)
		}
	})
}
