package prefs

import (
	"context"

	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
)

// Repository persists preferences per user.
type Repository interface {
	Load(ctx context.Context, uid string) (domprefs.Prefs, error)
	Save(ctx context.Context, uid string, p domprefs.Prefs) error
}
