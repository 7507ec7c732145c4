package firestore

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// subscription cancels a listener goroutine and waits for it to exit.
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func isStopped(err error) bool {
	return errors.Is(err, iterator.Done) || errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}

// WatchDocument streams snapshots of one document.
func (s *Store) WatchDocument(
	ctx context.Context, collection, id string, fn func(db.Document, error),
) (db.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).Doc(id).Snapshots(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if !isStopped(err) {
					fn(db.Document{}, wrap(db.OpWatch, err))
				}
				return
			}
			if !snap.Exists() {
				fn(db.Document{}, db.ErrKeyNotFound)
				continue
			}
			fn(toDocument(snap), nil)
		}
	}()
	return sub, nil
}

// WatchQuery streams result sets of q. Cursors are not supported for listeners.
func (s *Store) WatchQuery(ctx context.Context, q db.Query, fn func([]db.Document, error)) (db.Subscription, error) {
	q.StartAfter = nil
	fq, err := s.compile(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	it := fq.Snapshots(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if !isStopped(err) {
					fn(nil, wrap(db.OpWatch, err))
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				fn(nil, wrap(db.OpWatch, err))
				continue
			}
			docs := make([]db.Document, len(snaps))
			for i, snap := range snaps {
				docs[i] = toDocument(snap)
			}
			fn(docs, nil)
		}
	}()
	return sub, nil
}
