package hostel

import (
	"context"

	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domreview "github.com/ucc-hostels/hostelfinder/internal/domain/review"
)

// Repository defines the storage contract for hostels.
type Repository interface {
	Get(ctx context.Context, id string) (domhostel.Hostel, error)
	IncrementViews(ctx context.Context, id string) error
	Create(ctx context.Context, d domhostel.Draft, createdBy string) (string, error)
	Update(ctx context.Context, id string, d domhostel.Draft) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	AppendImage(ctx context.Context, id string, img domhostel.Image) (domhostel.Hostel, error)
}

// ReviewRepository defines the storage contract for reviews.
type ReviewRepository interface {
	List(ctx context.Context, hostelID string, pageSize int, cursor string) (domreview.Page, error)
	Add(ctx context.Context, hostelID string, d domreview.Draft, by domreview.Author) (domreview.Review, error)
	MarkHelpful(ctx context.Context, hostelID, reviewID string) error
}

// Invalidator drops cached hostel lists after a write.
type Invalidator interface {
	InvalidateAll()
}

// MediaUploader stores images on the media CDN.
type MediaUploader interface {
	Upload(ctx context.Context, hostelID string, u domhostel.Upload) (domhostel.Image, error)
}
