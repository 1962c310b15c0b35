package profiles

import (
	"context"
	"errors"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/models"

	"gorm.io/gorm"
)

// Service manages per-user profiles (role and display metadata).
type Service struct {
	db *gorm.DB
}

// NewService creates a new profile service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Ensure returns the user's profile, creating it with role=user on
// first authenticated access.
func (s *Service) Ensure(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	profile := models.Profile{
		ID:        userID,
		FullName:  fullName,
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Where("id = ?", userID).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, errs.Dependency("failed to ensure profile", err)
	}
	return &profile, nil
}

// Get returns a profile by user id.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("profile not found: %s", userID)
		}
		return nil, errs.Dependency("failed to load profile", err)
	}
	return &profile, nil
}

// UpdateRole changes a profile's role. Admin only.
func (s *Service) UpdateRole(ctx context.Context, caller auth.Context, userID, role string) (*models.Profile, error) {
	if caller.Role != models.RoleAdmin {
		return nil, errs.Validation("admin role required")
	}
	if !models.ValidRole(role) {
		return nil, errs.Validation("unknown role %q", role)
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Role = role
	profile.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, errs.Dependency("failed to update profile", err)
	}
	return profile, nil
}

// DashboardPathFor maps a role to its landing dashboard path.
func DashboardPathFor(role string) string {
	switch role {
	case models.RoleAdmin:
		return "/admin"
	case models.RoleDeveloper:
		return "/developer/dashboard"
	default:
		return "/dashboard"
	}
}
