package auth

import (
	"context"
	"sync"

	"farmlink/internal/models"
)

const localKey = "local"

// LocalProvider drives a single in-process session against the Service. It is
// the identity provider used when the session store runs next to the database
// instead of over HTTP.
type LocalProvider struct {
	svc   *Service
	local *Broadcaster

	mu       sync.Mutex
	current  *models.Identity
	stopUser func()
}

// NewLocalProvider creates a provider with no signed-in user.
func NewLocalProvider(svc *Service) *LocalProvider {
	return &LocalProvider{svc: svc, local: NewBroadcaster(nil)}
}

// SignIn verifies credentials and makes the identity current.
func (p *LocalProvider) SignIn(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	identity, err := p.svc.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	p.setCurrent(identity)
	p.local.Publish(localKey, models.AuthEvent{Type: models.AuthSignedIn, Identity: identity})
	return identity, nil
}

// SignUp creates the account and makes it current.
func (p *LocalProvider) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Identity, error) {
	identity, err := p.svc.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	p.setCurrent(identity)
	p.local.Publish(localKey, models.AuthEvent{Type: models.AuthSignedIn, Identity: identity})
	return identity, nil
}

// SignOut drops the current identity.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	p.setCurrent(nil)
	p.local.Publish(localKey, models.AuthEvent{Type: models.AuthSignedOut})
	if current == nil {
		return nil
	}
	return p.svc.SignOut(ctx, current.UserID)
}

// Subscribe streams auth changes, starting with the current session.
func (p *LocalProvider) Subscribe() (<-chan models.AuthEvent, func()) {
	p.mu.Lock()
	initial := models.AuthEvent{Type: models.AuthInitial, Identity: p.current}
	p.mu.Unlock()
	return p.local.SubscribeWith(localKey, initial)
}

// Close stops relaying server side events.
func (p *LocalProvider) Close() {
	p.setCurrent(nil)
}

// setCurrent swaps the identity and the relay of server events for that user.
// Only USER_UPDATED is relayed; sign-in and sign-out are published locally.
func (p *LocalProvider) setCurrent(identity *models.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopUser != nil {
		p.stopUser()
		p.stopUser = nil
	}
	p.current = identity
	if identity == nil {
		return
	}

	token := identity.Token
	events, cancel := p.svc.Events().Subscribe(identity.UserID)
	p.stopUser = cancel
	go func() {
		for ev := range events {
			if ev.Type == models.AuthUserUpdated {
				p.local.Publish(localKey, WithToken(ev, token))
			}
		}
	}()
}

// WithToken returns ev with token set on a copy of its identity. Server side
// events carry no token.
func WithToken(ev models.AuthEvent, token string) models.AuthEvent {
	if ev.Identity != nil && ev.Identity.Token == "" {
		identity := *ev.Identity
		identity.Token = token
		ev.Identity = &identity
	}
	return ev
}
