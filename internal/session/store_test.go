package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	events     chan models.AuthEvent
	identity   *models.Identity
	signInErr  error
	signOutErr error
	signOuts   int
	mu         sync.Mutex
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(chan models.AuthEvent, 16)}
}

func (p *fakeProvider) SignIn(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return p.identity, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Identity, error) {
	return &models.Identity{UserID: "new-user", Email: req.Email, Metadata: req.Metadata}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return p.signOutErr
}

func (p *fakeProvider) Subscribe() (<-chan models.AuthEvent, func()) {
	return p.events, func() {}
}

type fakeRoles struct {
	roles    map[string]models.Role
	profiles map[string]*models.Profile
	err      error
	// block, when set, holds lookups of that user until release is closed
	block   string
	release chan struct{}
}

func (r *fakeRoles) LookupRole(ctx context.Context, userID string) (models.Role, error) {
	if userID == r.block && r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return models.RoleNone, ctx.Err()
		}
	}
	if r.err != nil {
		return models.RoleNone, r.err
	}
	role, ok := r.roles[userID]
	if !ok {
		return models.RoleNone, models.ErrNotFound
	}
	return role, nil
}

func (r *fakeRoles) LookupProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func farmerRoles() *fakeRoles {
	return &fakeRoles{
		roles:    map[string]models.Role{"u-farmer": models.RoleFarmer},
		profiles: map[string]*models.Profile{"u-farmer": {UserID: "u-farmer", FullName: "Rajesh Kumar"}},
	}
}

// waitFor reads snapshots until match returns true.
func waitFor(t *testing.T, ch <-chan models.Session, match func(models.Session) bool) models.Session {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case sess, ok := <-ch:
			require.True(t, ok, "observer closed")
			if match(sess) {
				return sess
			}
		case <-deadline:
			t.Fatal("timed out waiting for session")
		}
	}
}

func TestStore_InitialAbsentSessionEndsLoading(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, farmerRoles())
	defer store.Close()

	assert.True(t, store.Snapshot().Loading)

	obs, cancel := store.ObserveAuthChanges()
	defer cancel()
	provider.events <- models.AuthEvent{Type: models.AuthInitial}

	sess := waitFor(t, obs, func(s models.Session) bool { return !s.Loading })
	assert.False(t, sess.IsAuthenticated)
	assert.Equal(t, models.RoleNone, sess.Role)
}

func TestStore_InitialSessionResolvesRole(t *testing.T) {
	provider := newFakeProvider()
	store := NewStore(provider, farmerRoles())
	defer store.Close()

	obs, cancel := store.ObserveAuthChanges()
	defer cancel()
	provider.events <- models.AuthEvent{Type: models.AuthInitial, Identity: &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in"}}

	sess := waitFor(t, obs, func(s models.Session) bool { return !s.Loading })
	assert.True(t, sess.IsAuthenticated)
	assert.Equal(t, models.RoleFarmer, sess.Role)
	assert.Equal(t, "Rajesh Kumar", sess.UserName)
}

func TestStore_LoadingTimeout(t *testing.T) {
	store := NewStore(newFakeProvider(), farmerRoles(), WithLoadingTimeout(30*time.Millisecond))
	defer store.Close()

	require.Eventually(t, func() bool { return !store.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	assert.False(t, store.Snapshot().IsAuthenticated)
}

func TestStore_LoadingNeverReverts(t *testing.T) {
	provider := newFakeProvider()
	provider.identity = &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in"}
	store := NewStore(provider, farmerRoles())

	obs, cancel := store.ObserveAuthChanges()
	defer cancel()

	var seen []models.Session
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range obs {
			seen = append(seen, s)
		}
	}()

	provider.events <- models.AuthEvent{Type: models.AuthInitial}
	require.Eventually(t, func() bool { return !store.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	_, err := store.SignIn(context.Background(), models.Credentials{Email: "rajesh@farmlink.in", Password: "secret1"})
	require.NoError(t, err)
	provider.events <- models.AuthEvent{Type: models.AuthSignedIn, Identity: provider.identity}
	store.SignOut(context.Background())

	store.Close()
	<-done

	loaded := false
	for _, s := range seen {
		if loaded {
			assert.False(t, s.Loading, "loading reverted to true")
		}
		if !s.Loading {
			loaded = true
		}
	}
	assert.True(t, loaded)
}

func TestStore_SignIn(t *testing.T) {
	provider := newFakeProvider()
	provider.identity = &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in", Token: "tok"}
	store := NewStore(provider, farmerRoles())
	defer store.Close()

	sess, err := store.SignIn(context.Background(), models.Credentials{Email: "rajesh@farmlink.in", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated)
	assert.False(t, sess.Loading)
	assert.Equal(t, models.RoleFarmer, sess.Role)
	assert.Equal(t, "Rajesh Kumar", sess.UserName)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, sess, store.Snapshot())
}

func TestStore_SignInInvalidCredentials(t *testing.T) {
	provider := newFakeProvider()
	provider.signInErr = fmt.Errorf("%w: invalid login credentials", models.ErrAuth)
	store := NewStore(provider, farmerRoles())
	defer store.Close()

	sess, err := store.SignIn(context.Background(), models.Credentials{Email: "x@y.zz", Password: "nope"})
	assert.True(t, errors.Is(err, models.ErrAuth))
	assert.False(t, sess.IsAuthenticated)
}

func TestStore_RoleFallbacks(t *testing.T) {
	provider := newFakeProvider()
	roles := &fakeRoles{err: errors.New("profiles table unavailable")}
	store := NewStore(provider, roles)
	defer store.Close()

	provider.identity = &models.Identity{
		UserID:   "u1",
		Email:    "priya@farmlink.in",
		Metadata: models.UserMetadata{Role: models.RoleFarmer, FullName: "Priya Sharma"},
	}
	sess, err := store.SignIn(context.Background(), models.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, sess.Role, "metadata role")
	assert.Equal(t, "Priya Sharma", sess.UserName)

	provider.identity = &models.Identity{UserID: "u2", Email: "amit@farmlink.in"}
	sess, err = store.SignIn(context.Background(), models.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleConsumer, sess.Role, "default role")
	assert.Equal(t, "amit", sess.UserName)
}

func TestStore_SignUp(t *testing.T) {
	store := NewStore(newFakeProvider(), &fakeRoles{})
	defer store.Close()

	sess, err := store.SignUp(context.Background(), models.SignUpRequest{
		Email:    "neha@farmlink.in",
		Password: "secret1",
		Metadata: models.UserMetadata{FullName: "Neha Reddy", Role: models.RoleFarmer},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, sess.Role)
	assert.Equal(t, "Neha Reddy", sess.UserName)
}

func TestStore_SignOutAlwaysClears(t *testing.T) {
	provider := newFakeProvider()
	provider.identity = &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in"}
	provider.signOutErr = errors.New("network down")
	store := NewStore(provider, farmerRoles())
	defer store.Close()

	_, err := store.SignIn(context.Background(), models.Credentials{})
	require.NoError(t, err)

	store.SignOut(context.Background())
	sess := store.Snapshot()
	assert.False(t, sess.IsAuthenticated)
	assert.Equal(t, models.RoleNone, sess.Role)
	assert.Empty(t, sess.UserName)
	assert.False(t, sess.Loading)
	assert.Equal(t, 1, provider.signOuts)
}

func TestStore_SupersededLookupIsDiscarded(t *testing.T) {
	provider := newFakeProvider()
	roles := farmerRoles()
	roles.block = "u-farmer"
	roles.release = make(chan struct{})
	store := NewStore(provider, roles)
	defer store.Close()

	obs, cancel := store.ObserveAuthChanges()
	defer cancel()

	provider.events <- models.AuthEvent{Type: models.AuthSignedIn, Identity: &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in"}}
	provider.events <- models.AuthEvent{Type: models.AuthSignedOut}

	waitFor(t, obs, func(s models.Session) bool { return !s.Loading })
	close(roles.release)

	// give the released lookup a chance to report back
	time.Sleep(50 * time.Millisecond)
	sess := store.Snapshot()
	assert.False(t, sess.IsAuthenticated)
	assert.Equal(t, models.RoleNone, sess.Role)
}

func TestStore_RoleUpdateEvent(t *testing.T) {
	provider := newFakeProvider()
	roles := farmerRoles()
	store := NewStore(provider, roles)
	defer store.Close()

	obs, cancel := store.ObserveAuthChanges()
	defer cancel()

	identity := &models.Identity{UserID: "u-farmer", Email: "rajesh@farmlink.in"}
	provider.events <- models.AuthEvent{Type: models.AuthInitial, Identity: identity}
	waitFor(t, obs, func(s models.Session) bool { return s.Role == models.RoleFarmer })

	// no lookup is in flight once the farmer role has been observed
	roles.roles = map[string]models.Role{"u-farmer": models.RoleAdmin}
	provider.events <- models.AuthEvent{Type: models.AuthUserUpdated, Identity: identity}
	sess := waitFor(t, obs, func(s models.Session) bool { return s.Role == models.RoleAdmin })
	assert.True(t, sess.IsAuthenticated)
}

func TestStore_CloseClosesObservers(t *testing.T) {
	store := NewStore(newFakeProvider(), farmerRoles())
	obs, cancel := store.ObserveAuthChanges()

	store.Close()
	store.Close()
	cancel()

	<-obs // initial snapshot
	_, ok := <-obs
	assert.False(t, ok)
}
