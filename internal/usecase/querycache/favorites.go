package querycache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
)

// favoriteSet is the cached favorite relation of one user.
type favoriteSet struct {
	ids map[string]bool
	// gen is bumped by every mutation; a reconcile or reload started before
	// a newer mutation is discarded.
	gen uint64
	// inflight counts toggles applied but not yet settled. Reloads are not
	// applied while it is non-zero.
	inflight int

	fetchedAt time.Time
	readAt    time.Time
}

func (fs *favoriteSet) stale(now time.Time, staleTime time.Duration) bool {
	return now.Sub(fs.fetchedAt) >= staleTime
}

type pair struct{ uid, hostelID string }

// countPatch remembers one cached counter changed by a speculative apply.
type countPatch struct {
	e      *entry
	rev    uint64
	page   int
	index  int
	before int
}

// mutation is one optimistic favorite toggle moving through
// snapshot, speculative apply and commit or rollback.
type mutation struct {
	uid, hostelID string
	want          bool
	// was is the target's membership before the speculative apply.
	was     bool
	fs      *favoriteSet
	patches []countPatch
	gen     uint64
}

const rollbackMessage = "Could not update favorites. Please try again"

// Favorites returns uid's favorite hostel IDs, loading them on first use.
func (c *Cache) Favorites(ctx context.Context, uid string) ([]string, error) {
	fs, err := c.favoriteSet(ctx, uid)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := slices.Collect(maps.Keys(fs.ids))
	slices.Sort(ids)
	return ids, nil
}

// IsFavorited reports whether hostelID is in uid's favorite set.
func (c *Cache) IsFavorited(ctx context.Context, uid, hostelID string) (bool, error) {
	fs, err := c.favoriteSet(ctx, uid)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fs.ids[hostelID], nil
}

// favoriteSet returns the cached set, loading it on first use and reloading it
// once it is older than the stale time. A failed reload keeps serving the
// held set.
func (c *Cache) favoriteSet(ctx context.Context, uid string) (*favoriteSet, error) {
	c.mu.Lock()
	fs, ok := c.users[uid]
	if ok {
		fs.readAt = c.now()
		if !fs.stale(fs.readAt, c.cfg.StaleTime) {
			c.mu.Unlock()
			return fs, nil
		}
	}
	c.mu.Unlock()

	v, err, _ := c.favLoads.Do(uid, func() (any, error) {
		c.mu.Lock()
		var gen uint64
		if held := c.users[uid]; held != nil {
			gen = held.gen
		}
		c.mu.Unlock()

		ctx, cancel := c.fetchContext(ctx)
		defer cancel()
		ids, err := c.favorites.List(ctx, uid)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		now := c.now()
		held := c.users[uid]
		if held == nil {
			held = &favoriteSet{ids: toSet(ids), fetchedAt: now, readAt: now}
			c.users[uid] = held
			return held, nil
		}
		if held.gen == gen && held.inflight == 0 {
			held.ids = toSet(ids)
			held.fetchedAt = now
		}
		return held, nil
	})
	if err != nil {
		if ok {
			c.log.Warn("favorite reload failed, serving held set", zap.String("uid", uid), zap.Error(err))
			return fs, nil
		}
		return nil, fmt.Errorf("load favorites of %s: %w", uid, err)
	}
	return v.(*favoriteSet), nil
}

// ToggleFavorite flips hostelID in uid's favorite set optimistically and
// returns the new membership. A toggle on a pair with one in flight waits
// for it to settle first. On a failed write the set is restored to its
// state before this toggle, a notice is posted and the error is returned.
// Either way a background reconcile reloads the set and the hostel.
func (c *Cache) ToggleFavorite(ctx context.Context, uid, hostelID string) (bool, error) {
	base, err := c.favoriteSet(ctx, uid)
	if err != nil {
		return false, err
	}
	p := pair{uid: uid, hostelID: hostelID}
	if err := c.acquire(ctx, p); err != nil {
		return false, err
	}
	defer c.release(p)

	c.mu.Lock()
	m := c.applyLocked(base, uid, hostelID)
	c.mu.Unlock()

	wctx, cancel := c.fetchContext(ctx)
	err = c.favorites.Set(wctx, uid, hostelID, m.want)
	cancel()

	c.mu.Lock()
	m.fs.inflight--
	if err != nil {
		c.rollbackLocked(m)
	}
	c.mu.Unlock()

	c.reconcile(ctx, m)

	if err != nil {
		metrics.FavoriteMutationsTotal.WithLabelValues("rolled_back").Inc()
		c.log.Warn("favorite toggle rolled back",
			zap.String("uid", uid), zap.String("hostel_id", hostelID), zap.Error(err))
		if c.notifier != nil {
			c.notifier.Post(uid, notice.Notice{
				Kind:     domain.KindMutation,
				Message:  rollbackMessage,
				HostelID: hostelID,
			})
		}
		return !m.want, fmt.Errorf("toggle favorite %s: %w", hostelID, err)
	}
	metrics.FavoriteMutationsTotal.WithLabelValues("committed").Inc()
	return m.want, nil
}

// acquire waits until no mutation is in flight for p and claims it.
func (c *Cache) acquire(ctx context.Context, p pair) error {
	for {
		c.mu.Lock()
		busy, ok := c.pending[p]
		if !ok {
			c.pending[p] = make(chan struct{})
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Cache) release(p pair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.pending[p])
	delete(c.pending, p)
}

// applyLocked records the target's membership, flips it and moves cached
// favorite counters of hostelID by one. base is used if the user's set was
// evicted since it was loaded. Caller holds mu.
func (c *Cache) applyLocked(base *favoriteSet, uid, hostelID string) *mutation {
	fs := c.users[uid]
	if fs == nil {
		fs = base
		c.users[uid] = fs
	}
	fs.gen++
	fs.inflight++
	m := &mutation{
		uid:      uid,
		hostelID: hostelID,
		want:     !fs.ids[hostelID],
		was:      fs.ids[hostelID],
		fs:       fs,
		gen:      fs.gen,
	}
	if m.want {
		fs.ids[hostelID] = true
	} else {
		delete(fs.ids, hostelID)
	}

	delta := -1
	if m.want {
		delta = 1
	}
	for _, e := range c.entries {
		for pi := range e.pages {
			hs := e.pages[pi].Hostels
			for hi := range hs {
				if hs[hi].ID != hostelID {
					continue
				}
				m.patches = append(m.patches, countPatch{e: e, rev: e.rev, page: pi, index: hi, before: hs[hi].FavoriteCount})
				hs[hi] = hs[hi].WithFavoriteDelta(delta)
			}
		}
	}
	return m
}

// rollbackLocked restores the target's membership and the counters the
// speculative apply changed. Other members are left alone; toggles of other
// hostels may have settled meanwhile. Caller holds mu.
func (c *Cache) rollbackLocked(m *mutation) {
	if m.was {
		m.fs.ids[m.hostelID] = true
	} else {
		delete(m.fs.ids, m.hostelID)
	}
	for _, p := range m.patches {
		if p.e.rev != p.rev || p.page >= len(p.e.pages) || p.index >= len(p.e.pages[p.page].Hostels) {
			continue
		}
		h := &p.e.pages[p.page].Hostels[p.index]
		if h.ID == m.hostelID {
			h.FavoriteCount = p.before
		}
	}
}

// reconcile reloads the authoritative favorite set and hostel in the
// background. The result is discarded if a newer mutation for the user began.
func (c *Cache) reconcile(parent context.Context, m *mutation) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := c.fetchContext(parent)
		defer cancel()

		ids, err := c.favorites.List(ctx, m.uid)
		if err != nil {
			c.log.Warn("favorite reconcile failed", zap.String("uid", m.uid), zap.Error(err))
			return
		}
		h, herr := c.hostels.Get(ctx, m.hostelID)

		c.mu.Lock()
		defer c.mu.Unlock()
		fs := c.users[m.uid]
		if fs == nil || fs.gen != m.gen || fs.inflight > 0 {
			return
		}
		fs.ids = toSet(ids)
		fs.fetchedAt = c.now()
		if herr != nil {
			c.log.Warn("hostel reconcile failed", zap.String("hostel_id", m.hostelID), zap.Error(herr))
			return
		}
		c.replaceHostelLocked(h)
	}()
}

// replaceHostelLocked overwrites every cached copy of h. Caller holds mu.
func (c *Cache) replaceHostelLocked(h hostel.Hostel) {
	for _, e := range c.entries {
		for pi := range e.pages {
			hs := e.pages[pi].Hostels
			for hi := range hs {
				if hs[hi].ID == h.ID {
					hs[hi] = h
				}
			}
		}
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
