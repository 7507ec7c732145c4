package db

import (
	"context"
	"time"
)

// Store is the document database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	DocumentStore
	Transactor
	Watcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Document is one stored record. Fields hold plain Go values: string, bool,
// int64, float64, time.Time, []any and map[string]any.
type Document struct {
	ID     string
	Fields map[string]any
}

// Update sets one dotted field path. Value may be an Increment.
type Update struct {
	Path  string
	Value any
}

// Increment is an update value that atomically adds to a numeric field.
type Increment int64

// DocumentStore provides single-document and query operations.
// Collection names are slash-separated paths, e.g. "hostels/h1/reviews".
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) (QueryResult, error)
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, updates ...Update) error
	Delete(ctx context.Context, collection, id string) error
}

// Tx is a read-then-write transaction. All reads must precede all writes.
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, fields map[string]any) error
	// Merge writes fields into the document, creating it if missing.
	Merge(collection, id string, fields map[string]any) error
	Update(collection, id string, updates ...Update) error
	Delete(collection, id string) error
}

// Transactor runs atomic multi-document writes. fn may be retried on contention.
type Transactor interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Subscription is a cancel handle for a live listener.
type Subscription interface {
	Cancel()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() { f() }

// Watcher registers real-time listeners. Callbacks run on a store goroutine,
// never concurrently for the same subscription. A document listener receives
// ErrKeyNotFound while the document does not exist.
type Watcher interface {
	WatchDocument(ctx context.Context, collection, id string, fn func(Document, error)) (Subscription, error)
	WatchQuery(ctx context.Context, q Query, fn func([]Document, error)) (Subscription, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}
