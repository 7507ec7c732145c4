// Package querycache holds paginated hostel results per cache key and the
// optimistic favorite state layered over them.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

// Status is the state of one cache entry.
type Status string

// Entry states. Loading covers the first page; ready entries may be loading more.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Config tunes the cache.
type Config struct {
	PageSize     int
	StaleTime    time.Duration
	GCTime       time.Duration
	FetchTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.StaleTime <= 0 {
		c.StaleTime = 5 * time.Minute
	}
	if c.GCTime <= 0 {
		c.GCTime = 10 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

type entry struct {
	key    string
	filter filter.Filter
	sort   order.Option

	status      Status
	pages       []hostel.Page
	hasMore     bool
	loadingMore bool
	revalidate  bool
	failedMore  bool
	err         error

	// gen is bumped by every first-page load. A response is applied only
	// when the generation it captured is still current.
	gen uint64
	// settled is closed when the current first-page load finishes.
	settled chan struct{}
	// rev is bumped whenever held pages are replaced, invalidating
	// positions recorded by optimistic updates.
	rev uint64

	fetchedAt time.Time
	readAt    time.Time
}

// cursor is the continuation of the last held page.
func (e *entry) cursor() string {
	if len(e.pages) == 0 {
		return ""
	}
	return e.pages[len(e.pages)-1].Cursor
}

// Cache is the query cache. It is safe for concurrent use; all state changes
// happen under mu and fetches run with mu released.
type Cache struct {
	cfg       Config
	fetcher   PageFetcher
	hostels   HostelReader
	favorites FavoriteStore
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	users   map[string]*favoriteSet
	pending map[pair]chan struct{}

	favLoads singleflight.Group
	wg       sync.WaitGroup
}

// New creates a Cache.
func New(
	cfg Config, fetcher PageFetcher, hostels HostelReader, favorites FavoriteStore, notifier Notifier, log *zap.Logger,
) *Cache {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		cfg:       cfg,
		fetcher:   fetcher,
		hostels:   hostels,
		favorites: favorites,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		entries:   map[string]*entry{},
		users:     map[string]*favoriteSet{},
		pending:   map[pair]chan struct{}{},
	}
}

// Key is the cache key of (f, sort).
func Key(f filter.Filter, sort order.Option) string {
	return filter.Key(f, sort)
}

// Get returns the entry for (f, sort), loading the first page if nothing is
// held. Concurrent first loads of one key share a single fetch. Ready
// entries past their stale time are served as-is while a background
// revalidation runs. A failed entry is returned with its error until Retry.
func (c *Cache) Get(ctx context.Context, f filter.Filter, sort order.Option) (View, error) {
	sort = sort.OrDefault()
	key := Key(f, sort)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, filter: f, sort: sort, status: StatusIdle}
		c.entries[key] = e
	}
	e.readAt = c.now()

	switch e.status {
	case StatusIdle:
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		c.startLoad(ctx, e)
	case StatusLoading:
		metrics.QueryCacheTotal.WithLabelValues("shared").Inc()
	case StatusReady:
		if c.now().Sub(e.fetchedAt) >= c.cfg.StaleTime && !e.loadingMore && !e.revalidate {
			metrics.QueryCacheTotal.WithLabelValues("stale").Inc()
			c.startRevalidate(ctx, e)
		} else {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
		}
	case StatusError:
		metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
	}
	c.mu.Unlock()

	return c.await(ctx, e)
}

// Peek returns the entry for key without loading anything.
func (c *Cache) Peek(key string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return View{}, false
	}
	return c.viewLocked(e), true
}

// LoadMore fetches the page after the last held one and waits for it.
// It is a no-op while a load-more is in flight, when no further pages exist
// or when the entry is not ready.
func (c *Cache) LoadMore(ctx context.Context, key string) (View, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return View{}, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	e.readAt = c.now()
	if e.status != StatusReady || e.loadingMore || !e.hasMore {
		v := c.viewLocked(e)
		c.mu.Unlock()
		return v, v.Err
	}
	done := c.startLoadMore(ctx, e)
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	c.mu.Lock()
	v := c.viewLocked(e)
	c.mu.Unlock()
	return v, v.Err
}

// Refresh discards every held page of key and refetches the first one.
// A load-more still in flight for the older generation is discarded.
func (c *Cache) Refresh(ctx context.Context, key string) (View, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return View{}, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	e.readAt = c.now()
	c.startLoad(ctx, e)
	c.mu.Unlock()
	return c.await(ctx, e)
}

// Retry re-enters loading from the error state: the first page when no
// pages are held, otherwise the load-more that failed. Other states are left alone.
func (c *Cache) Retry(ctx context.Context, key string) (View, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return View{}, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	if e.status != StatusError {
		v := c.viewLocked(e)
		c.mu.Unlock()
		return v, v.Err
	}
	if !e.failedMore || len(e.pages) == 0 {
		c.startLoad(ctx, e)
		c.mu.Unlock()
		return c.await(ctx, e)
	}
	e.status, e.err, e.failedMore = StatusReady, nil, false
	c.mu.Unlock()
	return c.LoadMore(ctx, key)
}

// InvalidateAll marks every entry and favorite set stale so the next read
// revalidates it.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.fetchedAt = time.Time{}
	}
	for _, fs := range c.users {
		fs.fetchedAt = time.Time{}
	}
}

// Sweep evicts entries and favorite sets that have not been read for the GC
// time. Entries with a fetch in flight and sets with a toggle in flight are
// kept.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.cfg.GCTime)
	evicted := 0
	for key, e := range c.entries {
		if e.status == StatusLoading || e.loadingMore || e.revalidate {
			continue
		}
		if e.readAt.Before(cutoff) {
			delete(c.entries, key)
			evicted++
		}
	}
	for uid, fs := range c.users {
		if fs.inflight == 0 && fs.readAt.Before(cutoff) {
			delete(c.users, uid)
			evicted++
		}
	}
	return evicted
}

// Schedule registers Sweep on cr with a cron spec such as "@every 1m".
func (c *Cache) Schedule(cr *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := cr.AddFunc(spec, func() {
		if n := c.Sweep(); n > 0 {
			c.log.Debug("query cache sweep", zap.Int("evicted", n))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule cache sweep %q: %w", spec, err)
	}
	return id, nil
}

// Wait blocks until background fetches and reconciles have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// await waits until e has no first-page load in flight, following any
// refresh that superseded the load it started waiting on.
func (c *Cache) await(ctx context.Context, e *entry) (View, error) {
	for {
		c.mu.Lock()
		if e.status != StatusLoading {
			v := c.viewLocked(e)
			c.mu.Unlock()
			return v, v.Err
		}
		settled := e.settled
		c.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return View{}, ctx.Err()
		}
	}
}

// fetchContext detaches a fetch from the caller so a disconnecting client
// cannot leave a shared entry loading, and bounds it by the fetch timeout.
func (c *Cache) fetchContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), c.cfg.FetchTimeout)
}

// startLoad discards held pages and fetches the first page. Caller holds mu.
func (c *Cache) startLoad(parent context.Context, e *entry) {
	e.gen++
	gen := e.gen
	settled := make(chan struct{})
	e.status, e.err = StatusLoading, nil
	e.pages, e.hasMore = nil, false
	e.rev++
	e.loadingMore, e.failedMore, e.revalidate = false, false, false
	e.settled = settled

	f, sort := e.filter, e.sort
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(settled)

		ctx, cancel := c.fetchContext(parent)
		page, err := c.fetcher.FetchPage(ctx, f, sort, c.cfg.PageSize, "")
		cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if e.gen != gen {
			return
		}
		if err != nil {
			e.status, e.err = StatusError, err
			c.log.Warn("first page fetch failed", zap.String("key", e.key), zap.Error(err))
			return
		}
		c.applyFirstLocked(e, page)
	}()
}

// startRevalidate refetches every held page while the stale ones stay
// visible. The result is dropped when a refresh or load-more changed the
// entry meanwhile, and a failed revalidation keeps the stale pages. Caller holds mu.
func (c *Cache) startRevalidate(parent context.Context, e *entry) {
	gen, held := e.gen, len(e.pages)
	e.revalidate = true

	f, sort := e.filter, e.sort
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := c.fetchContext(parent)
		pages, err := c.fetchPages(ctx, f, sort, held)
		cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if e.gen != gen {
			return
		}
		e.revalidate = false
		if err != nil {
			c.log.Warn("background revalidation failed", zap.String("key", e.key), zap.Error(err))
			return
		}
		if len(e.pages) != held || e.loadingMore {
			return
		}
		e.pages = pages
		e.rev++
		e.hasMore = pages[len(pages)-1].HasMore
		e.fetchedAt = c.now()
	}()
}

// fetchPages fetches up to n pages from the start, stopping at the last page.
func (c *Cache) fetchPages(ctx context.Context, f filter.Filter, sort order.Option, n int) ([]hostel.Page, error) {
	pages := make([]hostel.Page, 0, n)
	cursor := ""
	for range max(n, 1) {
		page, err := c.fetcher.FetchPage(ctx, f, sort, c.cfg.PageSize, cursor)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}
	return pages, nil
}

// startLoadMore fetches the page after the current cursor. Caller holds mu.
func (c *Cache) startLoadMore(parent context.Context, e *entry) <-chan struct{} {
	gen := e.gen
	cursor := e.cursor()
	done := make(chan struct{})
	e.loadingMore = true

	f, sort := e.filter, e.sort
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)

		ctx, cancel := c.fetchContext(parent)
		page, err := c.fetcher.FetchPage(ctx, f, sort, c.cfg.PageSize, cursor)
		cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if e.gen != gen {
			return
		}
		e.loadingMore = false
		if err != nil {
			e.status, e.err, e.failedMore = StatusError, err, true
			c.log.Warn("load more failed", zap.String("key", e.key), zap.Error(err))
			return
		}
		e.pages = append(e.pages, page)
		e.hasMore = page.HasMore
	}()
	return done
}

func (c *Cache) applyFirstLocked(e *entry, page hostel.Page) {
	e.pages = []hostel.Page{page}
	e.rev++
	e.hasMore = page.HasMore
	e.status, e.err = StatusReady, nil
	e.fetchedAt = c.now()
}
