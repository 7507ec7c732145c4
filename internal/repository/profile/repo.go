// Package profile implements user profile documents.
package profile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
)

// store is the consumer interface for profiles (ISP).
type store interface {
	Get(ctx context.Context, collection, id string) (db.Document, error)
	Update(ctx context.Context, collection, id string, updates ...db.Update) error
}

// Repo implements profile reads and writes.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a profile repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Get reads uid's profile.
func (r *Repo) Get(ctx context.Context, uid string) (user.Profile, error) {
	doc, err := r.store.Get(ctx, user.Collection, uid)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return user.Profile{}, fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
		}
		if db.IsTransient(err) {
			return user.Profile{}, fmt.Errorf("get profile %s: %w: %w", uid, domain.ErrFetchUnavailable, err)
		}
		return user.Profile{}, fmt.Errorf("get profile %s: %w: %w", uid, domain.ErrFetchRejected, err)
	}
	return user.FromDocument(doc.ID, doc.Fields)
}

// Update writes the fields p sets.
func (r *Repo) Update(ctx context.Context, uid string, p user.Patch) error {
	fields := p.Fields(r.now())
	updates := make([]db.Update, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		updates = append(updates, db.Update{Path: k, Value: fields[k]})
	}
	return r.update(ctx, uid, updates)
}

// SetRole records uid's role on the profile.
func (r *Repo) SetRole(ctx context.Context, uid string, role auth.Role) error {
	return r.update(ctx, uid, []db.Update{
		{Path: user.FieldRole, Value: string(role)},
		{Path: user.FieldUpdatedAt, Value: r.now()},
	})
}

func (r *Repo) update(ctx context.Context, uid string, updates []db.Update) error {
	err := r.store.Update(ctx, user.Collection, uid, updates...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
	default:
		return fmt.Errorf("update profile %s: %w: %w", uid, domain.ErrMutationFailed, err)
	}
}
