// Package firestore implements db.Store over Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store implements db.Store via the Firestore client.
type Store struct {
	client *gcfirestore.Client
}

// NewStore wraps an initialised Firestore client. Store owns the client.
func NewStore(client *gcfirestore.Client) *Store {
	return &Store{client: client}
}

// Ping reads a document that need not exist to check connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection("_health").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return wrap(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	_ = s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for firestore: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, collection, id string) (db.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return db.Document{}, wrap(db.OpGet, err)
	}
	return toDocument(snap), nil
}

// Query runs q.
func (s *Store) Query(ctx context.Context, q db.Query) (db.QueryResult, error) {
	fq, err := s.compile(q)
	if err != nil {
		return db.QueryResult{}, err
	}
	it := fq.Documents(ctx)
	defer it.Stop()

	var res db.QueryResult
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return db.QueryResult{}, wrap(db.OpQuery, err)
		}
		res.Docs = append(res.Docs, toDocument(snap))
	}
	if res.Next, err = db.NextCursor(q.Order, res.Docs); err != nil {
		return db.QueryResult{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	return res, nil
}

// compile translates q. An ordered query also orders by document ID in the
// same direction, so a cursor of (value, ID) names a unique position.
func (s *Store) compile(q db.Query) (gcfirestore.Query, error) {
	if err := q.Validate(); err != nil {
		return gcfirestore.Query{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	fq := s.client.Collection(q.Collection).Query
	for _, c := range q.Clauses {
		fq = fq.Where(c.Field, string(c.Op), c.Value)
	}
	if q.Order.Field != "" {
		dir := gcfirestore.Asc
		if q.Order.Desc {
			dir = gcfirestore.Desc
		}
		fq = fq.OrderBy(q.Order.Field, dir).OrderBy(gcfirestore.DocumentID, dir)
	}
	if c := q.StartAfter; c != nil {
		fq = fq.StartAfter(c.Value, c.ID)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

// Create adds a document under a generated ID.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, toFirestore(fields)); err != nil {
		return "", wrap(db.OpCreate, err)
	}
	return ref.ID, nil
}

// Set replaces a document.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestore(fields)); err != nil {
		return wrap(db.OpSet, err)
	}
	return nil
}

// Update applies field updates to an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...db.Update) error {
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, toUpdates(updates)); err != nil {
		return wrap(db.OpUpdate, err)
	}
	return nil
}

// Delete removes a document. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return wrap(db.OpDel, err)
	}
	return nil
}

// wrap maps Firestore/gRPC errors onto db sentinels.
func wrap(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrKeyNotFound, err)}
	case codes.AlreadyExists:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrKeyExists, err)}
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	case codes.Aborted:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrAborted, err)}
	case codes.InvalidArgument, codes.FailedPrecondition:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrInvalidQuery, err)}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return &db.Error{Op: op, Err: err}
}
