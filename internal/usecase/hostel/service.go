// Package hostel implements hostel detail, management and review operations.
package hostel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domreview "github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

const defaultReviewPageSize = 10

// Service handles hostel and review operations.
type Service struct {
	hostels        Repository
	reviews        ReviewRepository
	cache          Invalidator
	media          MediaUploader
	reviewPageSize int
	maxUploadBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithMedia enables image uploads.
func WithMedia(m MediaUploader, maxUploadBytes int64) Option {
	return func(s *Service) {
		s.media = m
		s.maxUploadBytes = maxUploadBytes
	}
}

// WithReviewPageSize sets the review page size.
func WithReviewPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reviewPageSize = n
		}
	}
}

// New creates a hostel service. cache can be nil.
func New(hostels Repository, reviews ReviewRepository, cache Invalidator, opts ...Option) *Service {
	s := &Service{hostels: hostels, reviews: reviews, cache: cache, reviewPageSize: defaultReviewPageSize}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Detail returns one hostel and counts the view. A failed view count is
// logged and does not fail the read.
func (s *Service) Detail(ctx context.Context, id string) (domhostel.Hostel, error) {
	h, err := s.hostels.Get(ctx, id)
	if err != nil {
		return domhostel.Hostel{}, fmt.Errorf("hostel detail: %w", err)
	}
	if err := s.hostels.IncrementViews(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("count hostel view failed", zap.String("hostel_id", id), zap.Error(err))
	} else {
		h.Views++
	}
	return h, nil
}

// Create stores a new unverified hostel. Requires a manager.
func (s *Service) Create(ctx context.Context, d domhostel.Draft) (domhostel.Hostel, error) {
	id, err := auth.Require(ctx, auth.RoleManager)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	if err := d.Validate(); err != nil {
		return domhostel.Hostel{}, fmt.Errorf("validate hostel: %w", err)
	}
	hostelID, err := s.hostels.Create(ctx, d, id.UID)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	s.invalidate()
	h, err := s.hostels.Get(ctx, hostelID)
	if err != nil {
		return domhostel.Hostel{}, fmt.Errorf("read created hostel: %w", err)
	}
	return h, nil
}

// Update applies p to a hostel. Managers may only change hostels they
// created; admins any. The merged record is validated as a whole.
func (s *Service) Update(ctx context.Context, hostelID string, p domhostel.Patch) (domhostel.Hostel, error) {
	h, err := s.managed(ctx, hostelID)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	d := p.Apply(h.Draft())
	if err := d.Validate(); err != nil {
		return domhostel.Hostel{}, fmt.Errorf("validate hostel: %w", err)
	}
	if err := s.hostels.Update(ctx, hostelID, d); err != nil {
		return domhostel.Hostel{}, err
	}
	s.invalidate()
	h, err = s.hostels.Get(ctx, hostelID)
	if err != nil {
		return domhostel.Hostel{}, fmt.Errorf("read updated hostel: %w", err)
	}
	return h, nil
}

// Verify sets the verification flag. Requires an admin.
func (s *Service) Verify(ctx context.Context, hostelID string, verified bool) error {
	if _, err := auth.Require(ctx, auth.RoleAdmin); err != nil {
		return err
	}
	if err := s.hostels.SetVerified(ctx, hostelID, verified); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Delete removes a hostel and its reviews. Requires an admin.
func (s *Service) Delete(ctx context.Context, hostelID string) error {
	if _, err := auth.Require(ctx, auth.RoleAdmin); err != nil {
		return err
	}
	if err := s.hostels.Delete(ctx, hostelID); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Reviews returns one page of a hostel's reviews, newest first.
func (s *Service) Reviews(ctx context.Context, hostelID, cursor string) (domreview.Page, error) {
	p, err := s.reviews.List(ctx, hostelID, s.reviewPageSize, cursor)
	if err != nil {
		return domreview.Page{}, fmt.Errorf("list reviews: %w", err)
	}
	return p, nil
}

// AddReview writes a review by the caller.
func (s *Service) AddReview(ctx context.Context, hostelID string, d domreview.Draft) (domreview.Review, error) {
	id, err := auth.Require(ctx, auth.RoleUser)
	if err != nil {
		return domreview.Review{}, err
	}
	if err := d.Validate(); err != nil {
		return domreview.Review{}, fmt.Errorf("validate review: %w", err)
	}
	r, err := s.reviews.Add(ctx, hostelID, d, domreview.Author{UserID: id.UID, Name: id.Name, Avatar: id.Picture})
	if err != nil {
		return domreview.Review{}, err
	}
	// Ratings feed list ordering and filters.
	s.invalidate()
	return r, nil
}

// MarkHelpful bumps a review's helpful counter. Repeated calls count again.
func (s *Service) MarkHelpful(ctx context.Context, hostelID, reviewID string) error {
	if _, err := auth.Require(ctx, auth.RoleUser); err != nil {
		return err
	}
	return s.reviews.MarkHelpful(ctx, hostelID, reviewID)
}

// UploadImage stores an image on the media CDN and attaches it to the
// hostel. Managers may only change hostels they created; admins any.
func (s *Service) UploadImage(ctx context.Context, hostelID string, u domhostel.Upload) (domhostel.Hostel, error) {
	if _, err := auth.Require(ctx, auth.RoleManager); err != nil {
		return domhostel.Hostel{}, err
	}
	if s.media == nil {
		return domhostel.Hostel{}, fmt.Errorf("image uploads: %w", domain.ErrNotImplemented)
	}
	if err := u.Validate(s.maxUploadBytes); err != nil {
		return domhostel.Hostel{}, err
	}
	if _, err := s.managed(ctx, hostelID); err != nil {
		return domhostel.Hostel{}, err
	}

	img, err := s.media.Upload(ctx, hostelID, u)
	if err != nil {
		return domhostel.Hostel{}, fmt.Errorf("upload image: %w", err)
	}
	h, err := s.hostels.AppendImage(ctx, hostelID, img)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	s.invalidate()
	return h, nil
}

// managed returns the hostel if the caller may change it.
func (s *Service) managed(ctx context.Context, hostelID string) (domhostel.Hostel, error) {
	id, err := auth.Require(ctx, auth.RoleManager)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	h, err := s.hostels.Get(ctx, hostelID)
	if err != nil {
		return domhostel.Hostel{}, err
	}
	if id.Role != auth.RoleAdmin && h.CreatedBy != id.UID {
		return domhostel.Hostel{}, fmt.Errorf("hostel %s is not managed by %s: %w", hostelID, id.UID, domain.ErrForbidden)
	}
	return h, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}
