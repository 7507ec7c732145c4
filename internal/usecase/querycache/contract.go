package querycache

import (
	"context"

	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
)

// PageFetcher runs one page of a compiled hostel query.
type PageFetcher interface {
	FetchPage(ctx context.Context, f filter.Filter, sort order.Option, pageSize int, cursor string) (hostel.Page, error)
}

// HostelReader reads the authoritative hostel record.
type HostelReader interface {
	Get(ctx context.Context, id string) (hostel.Hostel, error)
}

// FavoriteStore persists the favorite relation.
type FavoriteStore interface {
	List(ctx context.Context, uid string) ([]string, error)
	Set(ctx context.Context, uid, hostelID string, want bool) error
}

// Notifier surfaces transient messages to a user.
type Notifier interface {
	Post(uid string, n notice.Notice) notice.Notice
}
