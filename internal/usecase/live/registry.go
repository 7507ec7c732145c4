// Package live keeps the real-time listeners of connected views. Each view
// holds at most one listener per resource; closing a view cancels them all.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

// Kind is a watchable resource type.
type Kind string

// Resource kinds.
const (
	KindHostel   Kind = "hostel"
	KindReviews  Kind = "reviews"
	KindFavorite Kind = "favorite"
	KindProfile  Kind = "profile"
)

// DefaultReviewLimit is the number of newest reviews a reviews listener tracks.
const DefaultReviewLimit = 20

// Resource identifies what a listener follows. ID is a hostel ID, or the
// caller's own UID for profiles.
type Resource struct {
	Kind Kind   `json:"resource"`
	ID   string `json:"id"`
}

// Event is one snapshot pushed to a view. Exactly one payload field is set,
// or Err when the listener failed.
type Event struct {
	Resource  Resource        `json:"-"`
	Hostel    *hostel.Hostel  `json:"hostel,omitempty"`
	Reviews   []review.Review `json:"reviews,omitempty"`
	Favorited *bool           `json:"favorited,omitempty"`
	Profile   *user.Profile   `json:"profile,omitempty"`
	Err       error           `json:"-"`
}

// Registry tracks subscriptions per view.
type Registry struct {
	watcher     db.Watcher
	log         *zap.Logger
	reviewLimit int

	mu    sync.Mutex
	views map[string]map[Resource]db.Subscription
}

// New creates a Registry over w.
func New(w db.Watcher, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		watcher:     w,
		log:         log,
		reviewLimit: DefaultReviewLimit,
		views:       map[string]map[Resource]db.Subscription{},
	}
}

// Subscribe starts following res for view, replacing and cancelling any
// listener the view already holds for res. uid is required for favorites
// and profiles.
// send is called on a store goroutine, never concurrently for one listener.
func (r *Registry) Subscribe(ctx context.Context, view string, res Resource, uid string, send func(Event)) error {
	if res.ID == "" {
		return fmt.Errorf("subscribe %s: id is required: %w", res.Kind, domain.ErrInvalidInput)
	}

	var (
		sub db.Subscription
		err error
	)
	switch res.Kind {
	case KindHostel:
		sub, err = r.watcher.WatchDocument(ctx, hostel.Collection, res.ID, func(d db.Document, err error) {
			send(r.hostelEvent(res, d, err))
		})
	case KindReviews:
		q := db.Query{
			Collection: review.Collection(res.ID),
			Order:      db.Ordering{Field: review.FieldCreatedAt, Desc: true},
			Limit:      r.reviewLimit,
		}
		sub, err = r.watcher.WatchQuery(ctx, q, func(docs []db.Document, err error) {
			send(r.reviewsEvent(res, docs, err))
		})
	case KindFavorite:
		if uid == "" {
			return fmt.Errorf("subscribe favorite: %w", domain.ErrUnauthenticated)
		}
		sub, err = r.watcher.WatchDocument(ctx, user.Favorites(uid), res.ID, func(_ db.Document, err error) {
			send(favoriteEvent(res, err))
		})
	case KindProfile:
		if uid == "" {
			return fmt.Errorf("subscribe profile: %w", domain.ErrUnauthenticated)
		}
		if res.ID != uid {
			return fmt.Errorf("subscribe profile %s: %w", res.ID, domain.ErrForbidden)
		}
		sub, err = r.watcher.WatchDocument(ctx, user.Collection, uid, func(d db.Document, err error) {
			send(r.profileEvent(res, d, err))
		})
	default:
		return fmt.Errorf("unknown resource %q: %w", res.Kind, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s %s: %w", res.Kind, res.ID, err)
	}

	r.mu.Lock()
	subs, ok := r.views[view]
	if !ok {
		subs = map[Resource]db.Subscription{}
		r.views[view] = subs
	}
	prev, replaced := subs[res]
	subs[res] = sub
	r.mu.Unlock()

	if replaced {
		prev.Cancel()
	} else {
		metrics.LiveSubscriptions.Inc()
	}
	return nil
}

// Unsubscribe cancels view's listener for res, if any.
func (r *Registry) Unsubscribe(view string, res Resource) {
	r.mu.Lock()
	sub, ok := r.views[view][res]
	if ok {
		delete(r.views[view], res)
		if len(r.views[view]) == 0 {
			delete(r.views, view)
		}
	}
	r.mu.Unlock()

	if ok {
		sub.Cancel()
		metrics.LiveSubscriptions.Dec()
	}
}

// Close cancels every listener of view. It returns once all are cancelled.
// The view must not subscribe again afterwards.
func (r *Registry) Close(view string) {
	r.mu.Lock()
	subs := r.views[view]
	delete(r.views, view)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	metrics.LiveSubscriptions.Sub(float64(len(subs)))
}

// Count returns the number of listeners held by view.
func (r *Registry) Count(view string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views[view])
}

func (r *Registry) hostelEvent(res Resource, d db.Document, err error) Event {
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			err = fmt.Errorf("hostel %s: %w", res.ID, domain.ErrNotFound)
		}
		return Event{Resource: res, Err: err}
	}
	h, err := hostel.FromDocument(d.ID, d.Fields)
	if err != nil {
		metrics.QuarantinedRecordsTotal.WithLabelValues(hostel.Collection).Inc()
		r.log.Warn("quarantined malformed hostel", zap.String("hostel_id", d.ID), zap.Error(err))
		return Event{Resource: res, Err: err}
	}
	return Event{Resource: res, Hostel: &h}
}

func (r *Registry) reviewsEvent(res Resource, docs []db.Document, err error) Event {
	if err != nil {
		return Event{Resource: res, Err: err}
	}
	out := make([]review.Review, 0, len(docs))
	for _, d := range docs {
		rv, err := review.FromDocument(res.ID, d.ID, d.Fields)
		if err != nil {
			metrics.QuarantinedRecordsTotal.WithLabelValues(review.Subcollection).Inc()
			r.log.Warn("quarantined malformed review", zap.String("review_id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, rv)
	}
	return Event{Resource: res, Reviews: out}
}

func (r *Registry) profileEvent(res Resource, d db.Document, err error) Event {
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			err = fmt.Errorf("profile %s: %w", res.ID, domain.ErrNotFound)
		}
		return Event{Resource: res, Err: err}
	}
	p, err := user.FromDocument(d.ID, d.Fields)
	if err != nil {
		metrics.QuarantinedRecordsTotal.WithLabelValues(user.Collection).Inc()
		r.log.Warn("quarantined malformed profile", zap.String("uid", d.ID), zap.Error(err))
		return Event{Resource: res, Err: err}
	}
	return Event{Resource: res, Profile: &p}
}

func favoriteEvent(res Resource, err error) Event {
	switch {
	case err == nil:
		on := true
		return Event{Resource: res, Favorited: &on}
	case errors.Is(err, db.ErrKeyNotFound):
		off := false
		return Event{Resource: res, Favorited: &off}
	default:
		return Event{Resource: res, Err: err}
	}
}
