// Package hostel implements hostel persistence: the paginated fetcher over
// compiled filter queries and the manager/admin writes.
package hostel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

// store is the consumer interface for hostels (ISP).
type store interface {
	Get(ctx context.Context, collection, id string) (db.Document, error)
	Query(ctx context.Context, q db.Query) (db.QueryResult, error)
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, updates ...db.Update) error
	RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error
}

// Repo implements hostel reads and writes over a document store.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a hostel repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// FetchPage runs one page of the compiled filter query. On error no partial
// page is returned. Malformed documents are skipped but still count towards
// the page size, so a short page always means the end of the result set.
func (r *Repo) FetchPage(
	ctx context.Context, f filter.Filter, sort order.Option, pageSize int, cursor string,
) (domhostel.Page, error) {
	q, err := BuildQuery(f, sort, pageSize, cursor)
	if err != nil {
		return domhostel.Page{}, fmt.Errorf("build query: %w: %w", domain.ErrFetchRejected, err)
	}

	start := time.Now()
	res, err := r.store.Query(ctx, q)
	metrics.PageFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		err = fetchError(err)
		metrics.PageFetchTotal.WithLabelValues(fetchStatus(err)).Inc()
		return domhostel.Page{}, fmt.Errorf("fetch %s: %w", q.String(), err)
	}
	metrics.PageFetchTotal.WithLabelValues("ok").Inc()

	return domhostel.Page{
		Hostels: r.decodeAll(ctx, res.Docs),
		Cursor:  res.Next,
		HasMore: pageSize > 0 && len(res.Docs) >= pageSize,
	}, nil
}

// Scan returns up to limit hostels in store order, skipping malformed ones.
func (r *Repo) Scan(ctx context.Context, limit int) ([]domhostel.Hostel, error) {
	res, err := r.store.Query(ctx, db.Query{Collection: domhostel.Collection, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("scan hostels: %w", fetchError(err))
	}
	return r.decodeAll(ctx, res.Docs), nil
}

func (r *Repo) decodeAll(ctx context.Context, docs []db.Document) []domhostel.Hostel {
	out := make([]domhostel.Hostel, 0, len(docs))
	for _, d := range docs {
		h, err := domhostel.FromDocument(d.ID, d.Fields)
		if err != nil {
			metrics.QuarantinedRecordsTotal.WithLabelValues(domhostel.Collection).Inc()
			logger.FromContext(ctx).Warn("quarantined malformed hostel",
				zap.String("hostel_id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, h)
	}
	return out
}

// Get reads one hostel.
func (r *Repo) Get(ctx context.Context, id string) (domhostel.Hostel, error) {
	doc, err := r.store.Get(ctx, domhostel.Collection, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domhostel.Hostel{}, fmt.Errorf("hostel %s: %w", id, domain.ErrNotFound)
		}
		return domhostel.Hostel{}, fmt.Errorf("get hostel %s: %w", id, fetchError(err))
	}
	return domhostel.FromDocument(doc.ID, doc.Fields)
}

// IncrementViews bumps the popularity counter.
func (r *Repo) IncrementViews(ctx context.Context, id string) error {
	if err := r.store.Update(ctx, domhostel.Collection, id,
		db.Update{Path: domhostel.FieldViews, Value: db.Increment(1)},
	); err != nil {
		return fmt.Errorf("increment views %s: %w", id, mutationError(err))
	}
	return nil
}

// Create stores a new hostel and returns its ID.
func (r *Repo) Create(ctx context.Context, d domhostel.Draft, createdBy string) (string, error) {
	id, err := r.store.Create(ctx, domhostel.Collection, d.Fields(createdBy, r.now()))
	if err != nil {
		return "", fmt.Errorf("create hostel: %w", mutationError(err))
	}
	return id, nil
}

// SetVerified sets the verification flag.
func (r *Repo) SetVerified(ctx context.Context, id string, verified bool) error {
	err := r.store.Update(ctx, domhostel.Collection, id,
		db.Update{Path: domhostel.FieldVerified, Value: verified},
		db.Update{Path: domhostel.FieldUpdatedAt, Value: r.now()},
	)
	if err != nil {
		return fmt.Errorf("verify hostel %s: %w", id, mutationError(err))
	}
	return nil
}

// Update rewrites the editable fields of a hostel from d.
func (r *Repo) Update(ctx context.Context, id string, d domhostel.Draft) error {
	fields := d.EditableFields(r.now())
	updates := make([]db.Update, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		updates = append(updates, db.Update{Path: k, Value: fields[k]})
	}
	if err := r.store.Update(ctx, domhostel.Collection, id, updates...); err != nil {
		return fmt.Errorf("update hostel %s: %w", id, mutationError(err))
	}
	return nil
}

// Delete removes a hostel together with its reviews in one transaction.
func (r *Repo) Delete(ctx context.Context, id string) error {
	reviews := review.Collection(id)
	res, err := r.store.Query(ctx, db.Query{Collection: reviews})
	if err != nil {
		return fmt.Errorf("list reviews of %s: %w", id, fetchError(err))
	}

	err = r.store.RunTx(ctx, func(_ context.Context, tx db.Tx) error {
		if _, err := tx.Get(domhostel.Collection, id); err != nil {
			return err
		}
		for _, d := range res.Docs {
			if err := tx.Delete(reviews, d.ID); err != nil {
				return err
			}
		}
		return tx.Delete(domhostel.Collection, id)
	})
	if err != nil {
		return fmt.Errorf("delete hostel %s: %w", id, mutationError(err))
	}
	return nil
}

// AppendImage adds img to the hostel's image list. The first image becomes primary.
func (r *Repo) AppendImage(ctx context.Context, id string, img domhostel.Image) (domhostel.Hostel, error) {
	var updated domhostel.Hostel
	err := r.store.RunTx(ctx, func(_ context.Context, tx db.Tx) error {
		doc, err := tx.Get(domhostel.Collection, id)
		if err != nil {
			return err
		}
		h, err := domhostel.FromDocument(doc.ID, doc.Fields)
		if err != nil {
			return err
		}
		if len(h.Images) == 0 {
			img.IsPrimary = true
		}
		h.Images = append(h.Images, img)
		h.UpdatedAt = r.now()
		updated = h
		return tx.Update(domhostel.Collection, id,
			db.Update{Path: domhostel.FieldImages, Value: domhostel.ImagesValue(h.Images)},
			db.Update{Path: domhostel.FieldUpdatedAt, Value: h.UpdatedAt},
		)
	})
	if err != nil {
		return domhostel.Hostel{}, fmt.Errorf("append image to %s: %w", id, mutationError(err))
	}
	return updated, nil
}

// fetchError classifies a store query failure.
func fetchError(err error) error {
	switch {
	case db.IsTransient(err):
		return fmt.Errorf("%w: %w", domain.ErrFetchUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrFetchRejected, err)
	}
}

// mutationError classifies a store write failure.
func mutationError(err error) error {
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, domain.ErrMalformedRecord):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrMutationFailed, err)
	}
}

func fetchStatus(err error) string {
	if errors.Is(err, domain.ErrFetchUnavailable) {
		return "unavailable"
	}
	return "rejected"
}
