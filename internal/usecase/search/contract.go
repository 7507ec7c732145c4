package search

import (
	"context"

	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
)

// Scanner reads a bounded sample of hostels for client-side matching.
type Scanner interface {
	Scan(ctx context.Context, limit int) ([]hostel.Hostel, error)
}

// RecentRecorder remembers executed searches per user.
type RecentRecorder interface {
	AddRecentSearch(ctx context.Context, uid, q string) domprefs.Prefs
}
