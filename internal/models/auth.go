package models

// Credentials are an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest creates an account with its profile metadata.
type SignUpRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Metadata UserMetadata `json:"metadata"`
}

// Identity is the authenticated principal returned by an identity provider.
type Identity struct {
	UserID   string       `json:"userId"`
	Email    string       `json:"email"`
	Token    string       `json:"token,omitempty"`
	Metadata UserMetadata `json:"metadata"`
}

// AuthEventType names an auth state change.
type AuthEventType string

const (
	AuthSignedIn    AuthEventType = "SIGNED_IN"
	AuthSignedOut   AuthEventType = "SIGNED_OUT"
	AuthUserUpdated AuthEventType = "USER_UPDATED"
	// AuthInitial reports the session present when a subscription starts.
	AuthInitial AuthEventType = "INITIAL_SESSION"
)

// AuthEvent is one entry of a provider's change stream. Identity is nil when signed out.
type AuthEvent struct {
	Type     AuthEventType `json:"type"`
	Identity *Identity     `json:"identity,omitempty"`
}
