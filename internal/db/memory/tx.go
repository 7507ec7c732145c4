package memory

import (
	"context"
	"errors"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

type write struct {
	collection string
	id         string
	apply      func(s *Store) error
}

// tx buffers writes until commit. Reads after the first write are rejected.
type tx struct {
	s      *Store
	writes []write
}

var errReadAfterWrite = errors.New("memory: transaction read after write")

// RunTx runs fn and applies its writes atomically when fn returns nil.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error {
	if err := s.check(db.OpTransaction, ""); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{s: s}
	if err := fn(ctx, t); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := make(map[string]map[string]map[string]any, len(t.writes))
	for _, w := range t.writes {
		if _, ok := snapshot[w.collection]; ok {
			continue
		}
		coll := map[string]map[string]any{}
		for id, fields := range s.collections[w.collection] {
			coll[id] = fields
		}
		snapshot[w.collection] = coll
	}
	for _, w := range t.writes {
		if err := w.apply(s); err != nil {
			for name, coll := range snapshot {
				s.collections[name] = coll
			}
			s.mu.Unlock()
			return &db.Error{Op: db.OpTransaction, Err: err}
		}
	}
	s.mu.Unlock()

	notified := map[string]bool{}
	for _, w := range t.writes {
		if !notified[w.collection] {
			notified[w.collection] = true
			s.notify(w.collection)
		}
	}
	return nil
}

func (t *tx) Get(collection, id string) (db.Document, error) {
	if len(t.writes) > 0 {
		return db.Document{}, errReadAfterWrite
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.getLocked(collection, id)
}

func (t *tx) Set(collection, id string, fields map[string]any) error {
	fields = cloneMap(fields)
	t.add(collection, id, func(s *Store) error {
		s.putLocked(collection, id, fields)
		return nil
	})
	return nil
}

func (t *tx) Merge(collection, id string, fields map[string]any) error {
	fields = cloneMap(fields)
	t.add(collection, id, func(s *Store) error {
		return s.mergeLocked(collection, id, fields)
	})
	return nil
}

func (t *tx) Update(collection, id string, updates ...db.Update) error {
	t.add(collection, id, func(s *Store) error {
		return s.updateLocked(collection, id, updates)
	})
	return nil
}

func (t *tx) Delete(collection, id string) error {
	t.add(collection, id, func(s *Store) error {
		delete(s.collections[collection], id)
		return nil
	})
	return nil
}

func (t *tx) add(collection, id string, apply func(s *Store) error) {
	t.writes = append(t.writes, write{collection: collection, id: id, apply: apply})
}
