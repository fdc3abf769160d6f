package models

// Session is the client side view of the current identity.
type Session struct {
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            Role   `json:"role"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	UserName        string `json:"userName"`
	Loading         bool   `json:"loading"`
	Token           string `json:"-"`
}

// NewSession returns the initial session state: unauthenticated and still loading.
func NewSession() Session {
	return Session{Role: RoleNone, Loading: true}
}

// Clear drops the identity while keeping the loading flag.
func (s *Session) Clear() {
	s.UserID = ""
	s.Email = ""
	s.Role = RoleNone
	s.IsAuthenticated = false
	s.UserName = ""
	s.Token = ""
}
