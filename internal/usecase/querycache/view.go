package querycache

import (
	"slices"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
)

// View is a read-only snapshot of one cache entry.
type View struct {
	Key string
	// Hostels is the concatenation of all held pages in fetch order.
	Hostels     []hostel.Hostel
	Pages       int
	Status      Status
	Loading     bool
	LoadingMore bool
	HasMore     bool
	Refreshing  bool
	Err         error
	ErrKind     domain.Kind
	FetchedAt   time.Time
}

func (c *Cache) viewLocked(e *entry) View {
	n := 0
	for _, p := range e.pages {
		n += len(p.Hostels)
	}
	hostels := make([]hostel.Hostel, 0, n)
	for _, p := range e.pages {
		hostels = append(hostels, p.Hostels...)
	}
	for i := range hostels {
		hostels[i].Amenities = slices.Clone(hostels[i].Amenities)
		hostels[i].Images = slices.Clone(hostels[i].Images)
	}
	return View{
		Key:         e.key,
		Hostels:     hostels,
		Pages:       len(e.pages),
		Status:      e.status,
		Loading:     e.status == StatusLoading,
		LoadingMore: e.loadingMore,
		HasMore:     e.hasMore,
		Refreshing:  e.revalidate,
		Err:         e.err,
		ErrKind:     domain.KindOf(e.err),
		FetchedAt:   e.fetchedAt,
	}
}
