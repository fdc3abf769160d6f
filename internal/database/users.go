package database

import (
	"context"
	"fmt"

	"farmlink/internal/models"

	"github.com/jinzhu/gorm"
)

// UserStore persists accounts and their profiles.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store on an open connection.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts the user and profile together. A taken email is ErrConflict.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User, profile *models.Profile) error {
	user.Email = models.NormalizeEmail(user.Email)
	return transaction(ctx, s.db, func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("email %s: %w", user.Email, models.ErrConflict)
		}
		if err := tx.Create(user).Error; err != nil {
			if uniqueViolation(err) {
				return fmt.Errorf("email %s: %w", user.Email, models.ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// FindByEmail returns the user with the (normalized) email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// GetUser returns the user by id.
func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// GetProfile returns the profile row of a user.
func (s *UserStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// ListUsers returns all users with their profile details, newest first.
func (s *UserStore) ListUsers(ctx context.Context) ([]models.UserWithProfile, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var profiles []models.Profile
	if err := s.db.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	byUser := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	out := make([]models.UserWithProfile, 0, len(users))
	for _, u := range users {
		p := byUser[u.ID]
		out = append(out, models.UserWithProfile{
			User:     u,
			FullName: p.FullName,
			Phone:    p.Phone,
			FarmName: p.FarmName,
		})
	}
	return out, nil
}

// UpdateRole changes a user's role.
func (s *UserStore) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("failed to update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
