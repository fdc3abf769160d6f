package models

import "strings"

// Role represents a marketplace role. RoleNone marks an unauthenticated or unresolved user.
type Role string

const (
	RoleNone     Role = "none"
	RoleFarmer   Role = "farmer"
	RoleConsumer Role = "consumer"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a stored or user supplied role string. Unknown values map to RoleNone.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleFarmer:
		return RoleFarmer
	case RoleConsumer:
		return RoleConsumer
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}

// Valid reports whether the role is one a user can hold.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleConsumer, RoleAdmin:
		return true
	case RoleNone:
		return false
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
