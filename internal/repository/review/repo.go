// Package review implements review persistence.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domreview "github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

// store is the consumer interface for reviews (ISP).
type store interface {
	Query(ctx context.Context, q db.Query) (db.QueryResult, error)
	Update(ctx context.Context, collection, id string, updates ...db.Update) error
	RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error
}

// Repo implements review reads and writes.
type Repo struct {
	store store
	now   func() time.Time
	newID func() string
}

// New creates a review repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now, newID: uuid.NewString}
}

// List fetches one page of a hostel's reviews. Page rules match hostel pages.
func (r *Repo) List(ctx context.Context, hostelID string, pageSize int, cursor string) (domreview.Page, error) {
	q, err := db.NewQuery(domreview.Collection(hostelID)).
		OrderBy(domreview.FieldCreatedAt, true).
		Limit(pageSize).
		StartAfter(cursor).
		Build()
	if err != nil {
		return domreview.Page{}, fmt.Errorf("reviews cursor: %w: %w", domain.ErrInvalidInput, err)
	}
	res, err := r.store.Query(ctx, q)
	if err != nil {
		if db.IsTransient(err) {
			return domreview.Page{}, fmt.Errorf("list reviews %s: %w: %w", hostelID, domain.ErrFetchUnavailable, err)
		}
		return domreview.Page{}, fmt.Errorf("list reviews %s: %w: %w", hostelID, domain.ErrFetchRejected, err)
	}

	page := domreview.Page{
		Reviews: make([]domreview.Review, 0, len(res.Docs)),
		Cursor:  res.Next,
		HasMore: pageSize > 0 && len(res.Docs) >= pageSize,
	}
	for _, d := range res.Docs {
		rv, err := domreview.FromDocument(hostelID, d.ID, d.Fields)
		if err != nil {
			metrics.QuarantinedRecordsTotal.WithLabelValues(domreview.Subcollection).Inc()
			logger.FromContext(ctx).Warn("quarantined malformed review",
				zap.String("hostel_id", hostelID), zap.String("review_id", d.ID), zap.Error(err))
			continue
		}
		page.Reviews = append(page.Reviews, rv)
	}
	return page, nil
}

// Add writes a review, folds its rating into the hostel's average and bumps
// the hostel's and the author's review counters in one transaction.
func (r *Repo) Add(ctx context.Context, hostelID string, d domreview.Draft, by domreview.Author) (domreview.Review, error) {
	id := r.newID()
	now := r.now()
	reviews := domreview.Collection(hostelID)

	err := r.store.RunTx(ctx, func(_ context.Context, tx db.Tx) error {
		doc, err := tx.Get(domhostel.Collection, hostelID)
		if err != nil {
			return err
		}
		h, err := domhostel.FromDocument(doc.ID, doc.Fields)
		if err != nil {
			return err
		}
		authorReviews := 0
		profile, err := tx.Get(user.Collection, by.UserID)
		switch {
		case err == nil:
			if n, ok := profile.Fields[user.FieldReviewCount].(int64); ok {
				authorReviews = int(n)
			}
		case !errors.Is(err, db.ErrKeyNotFound):
			return err
		}

		if err := tx.Set(reviews, id, d.Fields(hostelID, by, now)); err != nil {
			return err
		}
		if err := tx.Update(domhostel.Collection, hostelID,
			db.Update{Path: domhostel.FieldReviewCount, Value: int64(h.ReviewCount + 1)},
			db.Update{Path: domhostel.FieldAverageRating, Value: domreview.NextAverage(h.AverageRating, h.ReviewCount, d.Rating)},
			db.Update{Path: domhostel.FieldUpdatedAt, Value: now},
		); err != nil {
			return err
		}
		return tx.Merge(user.Collection, by.UserID, map[string]any{
			user.FieldReviewCount: int64(authorReviews + 1),
		})
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domreview.Review{}, fmt.Errorf("hostel %s: %w", hostelID, domain.ErrNotFound)
		}
		return domreview.Review{}, fmt.Errorf("add review to %s: %w: %w", hostelID, domain.ErrMutationFailed, err)
	}
	return domreview.FromDocument(hostelID, id, d.Fields(hostelID, by, now))
}

// MarkHelpful bumps a review's helpful counter. Repeat calls by the same user are not deduplicated.
func (r *Repo) MarkHelpful(ctx context.Context, hostelID, reviewID string) error {
	err := r.store.Update(ctx, domreview.Collection(hostelID), reviewID,
		db.Update{Path: domreview.FieldHelpful, Value: db.Increment(1)},
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("review %s/%s: %w", hostelID, reviewID, domain.ErrNotFound)
	default:
		return fmt.Errorf("mark helpful %s/%s: %w: %w", hostelID, reviewID, domain.ErrMutationFailed, err)
	}
}
