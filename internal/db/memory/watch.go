package memory

import (
	"context"
	"sync"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// watcher delivers coalesced snapshots on its own goroutine.
type watcher struct {
	collection string
	signal     chan struct{}
	done       chan struct{}
	once       sync.Once
}

func (w *watcher) stop() { w.once.Do(func() { close(w.done) }) }

func (w *watcher) poke() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// WatchDocument calls fn with the current document and again after every
// write to its collection.
func (s *Store) WatchDocument(
	ctx context.Context, collection, id string, fn func(db.Document, error),
) (db.Subscription, error) {
	return s.watch(ctx, collection, func() {
		s.mu.RLock()
		doc, err := s.getLocked(collection, id)
		s.mu.RUnlock()
		fn(doc, err)
	})
}

// WatchQuery calls fn with the current result set and again after every
// write to the queried collection.
func (s *Store) WatchQuery(ctx context.Context, q db.Query, fn func([]db.Document, error)) (db.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, &db.Error{Op: db.OpWatch, Err: err}
	}
	return s.watch(ctx, q.Collection, func() {
		s.mu.RLock()
		docs := s.queryLocked(q)
		s.mu.RUnlock()
		fn(docs, nil)
	})
}

func (s *Store) watch(ctx context.Context, collection string, deliver func()) (db.Subscription, error) {
	if err := s.check(db.OpWatch, collection); err != nil {
		return nil, err
	}
	w := &watcher{
		collection: collection,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = w
	s.mu.Unlock()

	w.poke()
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.unwatch(id)
				return
			case <-w.done:
				return
			case <-w.signal:
				select {
				case <-w.done:
					return
				default:
				}
				deliver()
			}
		}
	}()
	return db.SubscriptionFunc(func() { s.unwatch(id) }), nil
}

func (s *Store) unwatch(id int) {
	s.mu.Lock()
	w, ok := s.watchers[id]
	delete(s.watchers, id)
	s.mu.Unlock()
	if ok {
		w.stop()
	}
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		if w.collection == collection {
			w.poke()
		}
	}
}

// Watchers returns the number of live listeners.
func (s *Store) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}
