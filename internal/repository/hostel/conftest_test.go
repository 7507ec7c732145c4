package hostel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/db/memory"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn    func(ctx context.Context, collection, id string) (db.Document, error)
	queryFn  func(ctx context.Context, q db.Query) (db.QueryResult, error)
	createFn func(ctx context.Context, collection string, fields map[string]any) (string, error)
	updateFn func(ctx context.Context, collection, id string, updates ...db.Update) error
	runTxFn  func(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error
}

func (m *mockStore) Get(ctx context.Context, collection, id string) (db.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return db.Document{}, db.ErrKeyNotFound
}

func (m *mockStore) Query(ctx context.Context, q db.Query) (db.QueryResult, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, q)
	}
	return db.QueryResult{}, nil
}

func (m *mockStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, collection, fields)
	}
	return "new-id", nil
}

func (m *mockStore) Update(ctx context.Context, collection, id string, updates ...db.Update) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, collection, id, updates...)
	}
	return nil
}

func (m *mockStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error {
	if m.runTxFn != nil {
		return m.runTxFn(ctx, fn)
	}
	return nil
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// hostelFields is a well-formed hostel document.
func hostelFields(name, location string, rating float64, priceMin, priceMax int) map[string]any {
	return map[string]any{
		"name":     name,
		"location": location,
		"gender":   "mixed",
		"coordinates": map[string]any{
			"latitude":  5.1167,
			"longitude": -1.2833,
		},
		"priceRange": map[string]any{
			"min":      int64(priceMin),
			"max":      int64(priceMax),
			"currency": domhostel.Currency,
		},
		"amenities":     []any{"wifi", "water"},
		"averageRating": rating,
		"reviewCount":   int64(0),
		"favoriteCount": int64(0),
		"views":         int64(0),
		"verified":      true,
		"featured":      false,
		"createdAt":     testNow,
	}
}

// seedHostels stores n hostels h00..h(n-1) with distinct ratings, highest last.
func seedHostels(t *testing.T, s *memory.Store, n int) {
	t.Helper()
	for i := range n {
		id := fmt.Sprintf("h%02d", i)
		fields := hostelFields("Hostel "+id, "Amamoma", float64(i)/10, 300, 500)
		if err := s.Set(context.Background(), domhostel.Collection, id, fields); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func newTestRepo(t *testing.T) (*Repo, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	t.Cleanup(s.Close)
	r := New(s)
	r.now = func() time.Time { return testNow }
	return r, s
}
