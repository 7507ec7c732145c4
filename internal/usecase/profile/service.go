// Package profile serves the caller's own profile and admin role changes.
package profile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

// Service handles profile operations.
type Service struct {
	repo   Repository
	claims RoleClaims
}

// New creates a profile service. claims may be nil when tokens are not
// verified, in which case roles live on the profile only.
func New(repo Repository, claims RoleClaims) *Service {
	return &Service{repo: repo, claims: claims}
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context) (user.Profile, error) {
	id, err := auth.Require(ctx, auth.RoleUser)
	if err != nil {
		return user.Profile{}, err
	}
	return s.repo.Get(ctx, id.UID)
}

// Update applies p to the caller's profile.
func (s *Service) Update(ctx context.Context, p user.Patch) (user.Profile, error) {
	id, err := auth.Require(ctx, auth.RoleUser)
	if err != nil {
		return user.Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return user.Profile{}, fmt.Errorf("validate profile: %w", err)
	}
	if !p.Empty() {
		if err := s.repo.Update(ctx, id.UID, p); err != nil {
			return user.Profile{}, err
		}
	}
	return s.repo.Get(ctx, id.UID)
}

// SetRole changes a user's role. Requires an admin, who may not demote
// themselves. The token claim is written before the profile, and takes
// effect when the user's token is next refreshed.
func (s *Service) SetRole(ctx context.Context, uid string, role auth.Role) error {
	caller, err := auth.Require(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}
	if !role.IsValid() {
		return fmt.Errorf("role %q: %w", role, domain.ErrInvalidInput)
	}
	if uid == caller.UID && role != auth.RoleAdmin {
		return fmt.Errorf("admins cannot demote themselves: %w", domain.ErrForbidden)
	}
	if _, err := s.repo.Get(ctx, uid); err != nil {
		return err
	}
	if s.claims != nil {
		if err := s.claims.SetRoleClaim(ctx, uid, role); err != nil {
			return fmt.Errorf("set role claim: %w", err)
		}
	}
	if err := s.repo.SetRole(ctx, uid, role); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("role changed",
		zap.String("uid", uid), zap.String("role", string(role)), zap.String("by", caller.UID))
	return nil
}
