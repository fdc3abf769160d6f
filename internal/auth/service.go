package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farmlink/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepository is the persistence the auth service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User, profile *models.Profile) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateRole(ctx context.Context, userID string, role models.Role) error
}

// Service is the server side identity provider: accounts, tokens and auth events.
type Service struct {
	users  UserRepository
	tokens *TokenManager
	events *Broadcaster
	logger *zap.Logger
}

// NewService wires the auth service.
func NewService(users UserRepository, tokens *TokenManager, events *Broadcaster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, events: events, logger: logger}
}

// Events returns the broadcaster carrying this service's auth events.
func (s *Service) Events() *Broadcaster {
	return s.events
}

// SignUp creates an account and profile and signs the user in.
// Only farmer and consumer can be chosen; anything else becomes consumer.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Identity, error) {
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Metadata.Role
	if role != models.RoleFarmer {
		role = models.RoleConsumer
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	profile := &models.Profile{
		FullName: strings.TrimSpace(req.Metadata.FullName),
		Phone:    strings.TrimSpace(req.Metadata.Phone),
	}
	if role == models.RoleFarmer {
		profile.FarmName = strings.TrimSpace(req.Metadata.FarmName)
	}
	if err := s.users.CreateUser(ctx, user, profile); err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", role.String()))
	return s.issue(user, profile)
}

// SignIn verifies credentials. Unknown emails and wrong passwords are both ErrAuth.
func (s *Service) SignIn(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	user, err := s.users.FindByEmail(ctx, creds.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid login credentials", models.ErrAuth)
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(creds.Password, user.PasswordHash); err != nil {
		return nil, fmt.Errorf("%w: invalid login credentials", models.ErrAuth)
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return s.issue(user, profile)
}

func (s *Service) issue(user *models.User, profile *models.Profile) (*models.Identity, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	identity := &models.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Token:    token,
		Metadata: models.UserMetadata{Role: user.Role},
	}
	if profile != nil {
		identity.Metadata.FullName = profile.FullName
		identity.Metadata.Phone = profile.Phone
		identity.Metadata.FarmName = profile.FarmName
	}
	announced := *identity
	announced.Token = ""
	s.events.Publish(user.ID, models.AuthEvent{Type: models.AuthSignedIn, Identity: &announced})
	return identity, nil
}

// SignOut announces the sign-out to the user's other subscribers.
// Tokens are stateless and stay valid until they expire.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	s.events.Publish(userID, models.AuthEvent{Type: models.AuthSignedOut})
	return nil
}

// Authenticate validates an access token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Validate(token)
}

// Identity returns the current identity of userID without a token.
func (s *Service) Identity(ctx context.Context, userID string) (*models.Identity, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	identity := &models.Identity{UserID: user.ID, Email: user.Email, Metadata: models.UserMetadata{Role: user.Role}}
	if profile, err := s.users.GetProfile(ctx, userID); err == nil {
		identity.Metadata.FullName = profile.FullName
		identity.Metadata.Phone = profile.Phone
		identity.Metadata.FarmName = profile.FarmName
	}
	return identity, nil
}

// LookupRole returns the stored role of a user.
func (s *Service) LookupRole(ctx context.Context, userID string) (models.Role, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.RoleNone, err
	}
	return user.Role, nil
}

// LookupProfile returns the stored profile of a user.
func (s *Service) LookupProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

// UpdateRole changes a user's role and notifies their sessions.
func (s *Service) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: invalid role %q", models.ErrInvalidInput, role)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	identity, err := s.Identity(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("role updated", zap.String("user_id", userID), zap.String("role", role.String()))
	s.events.Publish(userID, models.AuthEvent{Type: models.AuthUserUpdated, Identity: identity})
	return nil
}
