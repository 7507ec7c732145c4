package querycache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
)

type fetchResult struct {
	page hostel.Page
	err  error
}

type fetchRequest struct {
	cursor string
	reply  chan fetchResult
}

// fakeFetcher answers from fn, or, when requests is set, hands every call to
// the test and blocks until it replies.
type fakeFetcher struct {
	mu       sync.Mutex
	cursors  []string
	fn       func(cursor string) (hostel.Page, error)
	requests chan fetchRequest
}

func (f *fakeFetcher) FetchPage(
	ctx context.Context, _ filter.Filter, _ order.Option, _ int, cursor string,
) (hostel.Page, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	fn, requests := f.fn, f.requests
	f.mu.Unlock()

	if requests == nil {
		return fn(cursor)
	}
	req := fetchRequest{cursor: cursor, reply: make(chan fetchResult, 1)}
	requests <- req
	select {
	case res := <-req.reply:
		return res.page, res.err
	case <-ctx.Done():
		return hostel.Page{}, ctx.Err()
	}
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cursors...)
}

func (f *fakeFetcher) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = make(chan fetchRequest)
}

// next waits for the next blocked fetch.
func (f *fakeFetcher) next(t *testing.T) fetchRequest {
	t.Helper()
	select {
	case req := <-f.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return fetchRequest{}
	}
}

// catalogue serves n hostels h00..h(n-1) in pages keyed by cursor.
func catalogue(n, pageSize int) func(cursor string) (hostel.Page, error) {
	return func(cursor string) (hostel.Page, error) {
		start := 0
		if cursor != "" {
			_, _ = fmt.Sscanf(cursor, "h%02d", &start)
			start++
		}
		end := min(start+pageSize, n)
		return page(start, end-start, end-start == pageSize), nil
	}
}

func page(from, n int, hasMore bool) hostel.Page {
	p := hostel.Page{HasMore: hasMore}
	for i := from; i < from+n; i++ {
		p.Hostels = append(p.Hostels, hostel.Hostel{ID: fmt.Sprintf("h%02d", i), FavoriteCount: 3})
	}
	if n > 0 {
		p.Cursor = p.Hostels[n-1].ID
	}
	return p
}

func ids(v View) []string {
	out := make([]string, len(v.Hostels))
	for i, h := range v.Hostels {
		out[i] = h.ID
	}
	return out
}

type fakeFavorites struct {
	mu      sync.Mutex
	ids     map[string]map[string]bool
	setFn   func(ctx context.Context, uid, hostelID string, want bool) error
	sets    []bool
	lists   int
	listErr error
}

func newFakeFavorites(uid string, favorites ...string) *fakeFavorites {
	f := &fakeFavorites{ids: map[string]map[string]bool{uid: {}}}
	for _, id := range favorites {
		f.ids[uid][id] = true
	}
	return f
}

func (f *fakeFavorites) List(_ context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for id := range f.ids[uid] {
		out = append(out, id)
	}
	return out, nil
}

// replace swaps uid's stored favorites, as a write from another device would.
func (f *fakeFavorites) replace(uid string, favorites ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[uid] = map[string]bool{}
	for _, id := range favorites {
		f.ids[uid][id] = true
	}
}

func (f *fakeFavorites) failLists(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeFavorites) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeFavorites) setCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.sets...)
}

func (f *fakeFavorites) Set(ctx context.Context, uid, hostelID string, want bool) error {
	f.mu.Lock()
	f.sets = append(f.sets, want)
	setFn := f.setFn
	f.mu.Unlock()
	if setFn != nil {
		if err := setFn(ctx, uid, hostelID, want); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[uid] == nil {
		f.ids[uid] = map[string]bool{}
	}
	if want {
		f.ids[uid][hostelID] = true
	} else {
		delete(f.ids[uid], hostelID)
	}
	return nil
}

type fakeHostels struct {
	favoriteCount int
	err           error
}

func (f fakeHostels) Get(_ context.Context, id string) (hostel.Hostel, error) {
	if f.err != nil {
		return hostel.Hostel{}, f.err
	}
	if id == "" {
		return hostel.Hostel{}, domain.ErrNotFound
	}
	return hostel.Hostel{ID: id, FavoriteCount: f.favoriteCount}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (r *recordingNotifier) Post(_ string, n notice.Notice) notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return n
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	cache     *Cache
	fetcher   *fakeFetcher
	favorites *fakeFavorites
	notifier  *recordingNotifier
	clock     *testClock
}

func newHarness(t *testing.T, fetch func(cursor string) (hostel.Page, error)) *harness {
	t.Helper()
	return newHarnessWith(t, fetch, fakeHostels{favoriteCount: 7})
}

func newHarnessWith(t *testing.T, fetch func(cursor string) (hostel.Page, error), hostels fakeHostels) *harness {
	t.Helper()
	h := &harness{
		fetcher:   &fakeFetcher{fn: fetch},
		favorites: newFakeFavorites("u1", "A"),
		notifier:  &recordingNotifier{},
		clock:     &testClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.cache = New(Config{PageSize: 10}, h.fetcher, hostels, h.favorites, h.notifier, nil)
	h.cache.now = h.clock.Now
	t.Cleanup(h.cache.Wait)
	return h
}
