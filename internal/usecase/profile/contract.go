package profile

import (
	"context"

	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
)

// Repository defines the storage contract for profiles.
type Repository interface {
	Get(ctx context.Context, uid string) (user.Profile, error)
	Update(ctx context.Context, uid string, p user.Patch) error
	SetRole(ctx context.Context, uid string, role auth.Role) error
}

// RoleClaims stamps a role onto the identity provider's tokens.
type RoleClaims interface {
	SetRoleClaim(ctx context.Context, uid string, role auth.Role) error
}
