// Package memory is an in-process document store and key-value store.
// It backs the "memory" database driver and repository tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Hook is called before every operation. A non-nil error fails the operation.
type Hook func(op, collection string) error

// Option configures a Store.
type Option func(*Store)

// WithHook installs a fault-injection hook.
func WithHook(h Hook) Option {
	return func(s *Store) { s.hook = h }
}

// WithIDs overrides document ID generation.
func WithIDs(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store keeps documents in memory. Transactions are serialised with each other.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	watchers    map[int]*watcher
	nextWatch   int

	txMu  sync.Mutex
	hook  Hook
	newID func() string
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collections: map[string]map[string]map[string]any{},
		watchers:    map[int]*watcher{},
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) check(op, collection string) error {
	if s.hook == nil {
		return nil
	}
	if err := s.hook(op, collection); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return s.check(db.OpPing, "") }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Close cancels all live listeners.
func (s *Store) Close() {
	s.mu.Lock()
	ws := slices.Collect(maps.Values(s.watchers))
	s.watchers = map[int]*watcher{}
	s.mu.Unlock()
	for _, w := range ws {
		w.stop()
	}
}

// Get returns a copy of the document.
func (s *Store) Get(_ context.Context, collection, id string) (db.Document, error) {
	if err := s.check(db.OpGet, collection); err != nil {
		return db.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(collection, id)
}

func (s *Store) getLocked(collection, id string) (db.Document, error) {
	fields, ok := s.collections[collection][id]
	if !ok {
		return db.Document{}, db.ErrKeyNotFound
	}
	return db.Document{ID: id, Fields: cloneMap(fields)}, nil
}

// Query filters, orders and pages a collection. Documents missing the order
// field are excluded, and ties are broken by document ID in the same direction.
func (s *Store) Query(_ context.Context, q db.Query) (db.QueryResult, error) {
	if err := q.Validate(); err != nil {
		return db.QueryResult{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	if err := s.check(db.OpQuery, q.Collection); err != nil {
		return db.QueryResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.queryLocked(q)
	next, err := db.NextCursor(q.Order, docs)
	if err != nil {
		return db.QueryResult{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	return db.QueryResult{Docs: docs, Next: next}, nil
}

func (s *Store) queryLocked(q db.Query) []db.Document {
	coll := s.collections[q.Collection]
	docs := make([]db.Document, 0, len(coll))
	for id, fields := range coll {
		if !db.MatchAll(q.Clauses, fields) {
			continue
		}
		if q.Order.Field != "" {
			if _, ok := db.Lookup(fields, q.Order.Field); !ok {
				continue
			}
		}
		docs = append(docs, db.Document{ID: id, Fields: fields})
	}

	slices.SortFunc(docs, func(a, b db.Document) int {
		return compareAt(q.Order, position(q.Order, a), a.ID, position(q.Order, b), b.ID)
	})

	if c := q.StartAfter; c != nil {
		idx, _ := slices.BinarySearchFunc(docs, *c, func(d db.Document, c db.Cursor) int {
			if compareAt(q.Order, position(q.Order, d), d.ID, c.Value, c.ID) <= 0 {
				return -1
			}
			return 1
		})
		docs = docs[idx:]
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	for i := range docs {
		docs[i].Fields = cloneMap(docs[i].Fields)
	}
	return docs
}

func position(o db.Ordering, d db.Document) any {
	if o.Field == "" {
		return nil
	}
	v, _ := db.Lookup(d.Fields, o.Field)
	return v
}

// compareAt orders (value, id) pairs under o, ID breaking ties.
func compareAt(o db.Ordering, av any, aID string, bv any, bID string) int {
	n := 0
	if o.Field != "" {
		n, _ = db.Compare(av, bv)
	}
	if n == 0 {
		n = cmp.Compare(aID, bID)
	}
	if o.Desc {
		return -n
	}
	return n
}

// Create stores fields under a generated ID.
func (s *Store) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	if err := s.check(db.OpCreate, collection); err != nil {
		return "", err
	}
	id := s.newID()
	s.mu.Lock()
	if _, exists := s.collections[collection][id]; exists {
		s.mu.Unlock()
		return "", &db.Error{Op: db.OpCreate, Err: db.ErrKeyExists}
	}
	s.putLocked(collection, id, cloneMap(fields))
	s.mu.Unlock()
	s.notify(collection)
	return id, nil
}

// Set replaces the document.
func (s *Store) Set(_ context.Context, collection, id string, fields map[string]any) error {
	if err := s.check(db.OpSet, collection); err != nil {
		return err
	}
	s.mu.Lock()
	s.putLocked(collection, id, cloneMap(fields))
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Update applies field updates to an existing document.
func (s *Store) Update(_ context.Context, collection, id string, updates ...db.Update) error {
	if err := s.check(db.OpUpdate, collection); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.updateLocked(collection, id, updates)
	s.mu.Unlock()
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	s.notify(collection)
	return nil
}

// Delete removes the document. Missing documents are not an error.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	if err := s.check(db.OpDel, collection); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

func (s *Store) putLocked(collection, id string, fields map[string]any) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = map[string]map[string]any{}
		s.collections[collection] = coll
	}
	coll[id] = fields
}

func (s *Store) updateLocked(collection, id string, updates []db.Update) error {
	fields, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, db.ErrKeyNotFound)
	}
	next := cloneMap(fields)
	for _, u := range updates {
		if err := setPath(next, u.Path, u.Value); err != nil {
			return err
		}
	}
	s.collections[collection][id] = next
	return nil
}

func (s *Store) mergeLocked(collection, id string, fields map[string]any) error {
	next := map[string]any{}
	if cur, ok := s.collections[collection][id]; ok {
		next = cloneMap(cur)
	}
	if err := mergeInto(next, fields, ""); err != nil {
		return err
	}
	s.putLocked(collection, id, next)
	return nil
}

// setPath writes value at a dotted path, creating intermediate maps.
func setPath(fields map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	cur := fields
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			if _, exists := cur[p]; exists {
				return fmt.Errorf("%s: %q is not an object", path, p)
			}
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	leaf := parts[len(parts)-1]
	if inc, ok := value.(db.Increment); ok {
		return increment(cur, leaf, path, int64(inc))
	}
	cur[leaf] = cloneValue(value)
	return nil
}

func increment(m map[string]any, key, path string, by int64) error {
	switch v := m[key].(type) {
	case nil:
		m[key] = by
	case int64:
		m[key] = v + by
	case int:
		m[key] = int64(v) + by
	case float64:
		m[key] = v + float64(by)
	default:
		return fmt.Errorf("%s: cannot increment %T", path, v)
	}
	return nil
}

func mergeInto(dst, src map[string]any, prefix string) error {
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]any:
			child, ok := dst[k].(map[string]any)
			if !ok {
				child = map[string]any{}
				dst[k] = child
			}
			if err := mergeInto(child, sv, prefix+k+"."); err != nil {
				return err
			}
		case db.Increment:
			if err := increment(dst, k, prefix+k, int64(sv)); err != nil {
				return err
			}
		default:
			dst[k] = cloneValue(v)
		}
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
