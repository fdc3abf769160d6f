package models

import (
	"strings"
	"time"
)

// User is an account held by the local identity provider.
type User struct {
	ID           string    `gorm:"primary_key" json:"id"`
	Email        string    `gorm:"unique_index;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile holds display details for a user, stored separately from the role.
type Profile struct {
	UserID    string    `gorm:"primary_key" json:"userId"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone,omitempty"`
	FarmName  string    `json:"farmName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserMetadata is the profile data supplied at sign-up and echoed back by the provider.
type UserMetadata struct {
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role,omitempty"`
	FarmName string `json:"farmName,omitempty"`
}

// UserWithProfile is the admin listing row.
type UserWithProfile struct {
	User
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	FarmName string `json:"farmName,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName picks the profile name, else the email local part, else "User".
func DisplayName(fullName, email string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" && !strings.Contains(email, "@") {
		return email
	}
	return "User"
}
