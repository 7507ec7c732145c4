// Package favorite implements the user-hostel favorite relation.
package favorite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/docfield"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
)

// store is the consumer interface for favorites (ISP).
type store interface {
	Get(ctx context.Context, collection, id string) (db.Document, error)
	Query(ctx context.Context, q db.Query) (db.QueryResult, error)
	RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error
}

// Repo implements favorite reads and writes.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a favorite repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// List returns the IDs of the hostels uid has favorited.
func (r *Repo) List(ctx context.Context, uid string) ([]string, error) {
	res, err := r.store.Query(ctx, db.Query{Collection: user.Favorites(uid)})
	if err != nil {
		return nil, fmt.Errorf("list favorites of %s: %w", uid, readError(err))
	}
	ids := make([]string, len(res.Docs))
	for i, d := range res.Docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// IsFavorited reports whether uid has favorited hostelID.
func (r *Repo) IsFavorited(ctx context.Context, uid, hostelID string) (bool, error) {
	_, err := r.store.Get(ctx, user.Favorites(uid), hostelID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get favorite %s/%s: %w", uid, hostelID, readError(err))
	}
}

// Set makes the relation match want and moves the hostel's favorite counter
// in the same transaction. Setting the current state is a no-op.
func (r *Repo) Set(ctx context.Context, uid, hostelID string, want bool) error {
	favorites := user.Favorites(uid)
	err := r.store.RunTx(ctx, func(_ context.Context, tx db.Tx) error {
		_, err := tx.Get(favorites, hostelID)
		has := err == nil
		if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			return err
		}
		doc, err := tx.Get(domhostel.Collection, hostelID)
		if err != nil {
			return err
		}
		if has == want {
			return nil
		}
		// Firestore hands numbers back as int64 or float64 depending on
		// how they were written.
		fields := docfield.NewReader(doc.Fields)
		count := fields.OptInt(domhostel.FieldFavoriteCount)
		if err := fields.Err(); err != nil {
			return err
		}

		if want {
			count++
			err = tx.Set(favorites, hostelID, map[string]any{
				"hostelId":        hostelID,
				user.FieldSavedAt: r.now(),
			})
		} else {
			count = max(0, count-1)
			err = tx.Delete(favorites, hostelID)
		}
		if err != nil {
			return err
		}
		return tx.Update(domhostel.Collection, hostelID,
			db.Update{Path: domhostel.FieldFavoriteCount, Value: count},
		)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("hostel %s: %w", hostelID, domain.ErrNotFound)
	default:
		return fmt.Errorf("set favorite %s/%s: %w: %w", uid, hostelID, domain.ErrMutationFailed, err)
	}
}

func readError(err error) error {
	if db.IsTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrFetchUnavailable, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrFetchRejected, err)
}
