// Package prefs owns the per-user UI preference state. Every change goes
// through one of the mutation methods and is handed to a per-user writer
// that persists it in the background; a failed write is logged and never
// fails the change.
package prefs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

const defaultWriteTimeout = 2 * time.Second

type state struct {
	mu     sync.Mutex
	loaded bool
	prefs  domprefs.Prefs
	// dirty marks a change the writer has not picked up yet.
	dirty   bool
	writing bool
	// usedAt is the last lookup, guarded by Service.mu.
	usedAt time.Time
}

// Service is the preference store.
type Service struct {
	repo         Repository
	writeTimeout time.Duration
	now          func() time.Time

	mu    sync.Mutex
	users map[string]*state

	writers sync.WaitGroup
}

// New creates a Service. writeTimeout bounds each write-through.
func New(repo Repository, writeTimeout time.Duration) *Service {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Service{repo: repo, writeTimeout: writeTimeout, now: time.Now, users: map[string]*state{}}
}

// Get returns uid's preferences, loading them on first use.
func (s *Service) Get(ctx context.Context, uid string) domprefs.Prefs {
	st := s.lock(ctx, uid)
	defer st.mu.Unlock()
	return clone(st.prefs)
}

// SetTheme changes the colour scheme.
func (s *Service) SetTheme(ctx context.Context, uid string, t domprefs.Theme) (domprefs.Prefs, error) {
	if !t.IsValid() {
		return domprefs.Prefs{}, fmt.Errorf("theme %q: %w", t, domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.Theme = t }), nil
}

// SetSort changes the result ordering.
func (s *Service) SetSort(ctx context.Context, uid string, o order.Option) (domprefs.Prefs, error) {
	if !o.IsValid() {
		return domprefs.Prefs{}, fmt.Errorf("sort %q: %w", o, domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.Sort = o }), nil
}

// SetViewMode changes the result layout.
func (s *Service) SetViewMode(ctx context.Context, uid string, v domprefs.ViewMode) (domprefs.Prefs, error) {
	if !v.IsValid() {
		return domprefs.Prefs{}, fmt.Errorf("view mode %q: %w", v, domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.ViewMode = v }), nil
}

// SetFilter replaces the filter wholesale. Invalid params leave the stored
// filter untouched.
func (s *Service) SetFilter(ctx context.Context, uid string, params filter.Params) (domprefs.Prefs, error) {
	if _, err := filter.New(params); err != nil {
		return domprefs.Prefs{}, fmt.Errorf("set filter: %w", err)
	}
	params.Locations = slices.Clone(params.Locations)
	params.Amenities = slices.Clone(params.Amenities)
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.Filter = params }), nil
}

// ResetFilters restores the default filter.
func (s *Service) ResetFilters(ctx context.Context, uid string) domprefs.Prefs {
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.Filter = filter.DefaultParams() })
}

// AddRecentSearch moves q to the front of the recent searches.
func (s *Service) AddRecentSearch(ctx context.Context, uid, q string) domprefs.Prefs {
	return s.update(ctx, uid, func(p *domprefs.Prefs) {
		p.RecentSearches = domprefs.PushRecent(p.RecentSearches, q)
	})
}

// ClearRecentSearches empties the recent searches.
func (s *Service) ClearRecentSearches(ctx context.Context, uid string) domprefs.Prefs {
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.RecentSearches = []string{} })
}

// SetOnboardingSeen records whether onboarding was shown.
func (s *Service) SetOnboardingSeen(ctx context.Context, uid string, seen bool) domprefs.Prefs {
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.OnboardingSeen = seen })
}

// SetLocationPermission records the device location permission.
func (s *Service) SetLocationPermission(ctx context.Context, uid string, perm geo.Permission) (domprefs.Prefs, error) {
	if !perm.IsValid() {
		return domprefs.Prefs{}, fmt.Errorf("location permission %q: %w", perm, domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *domprefs.Prefs) { p.LocationPermission = perm }), nil
}

// ReportLocationError classifies a browser geolocation failure. A
// permission-denied failure is persisted as the permission state; the
// others are transient. The classified error is returned either way.
func (s *Service) ReportLocationError(ctx context.Context, uid string, code int) (domprefs.Prefs, error) {
	locErr, err := geo.ParseLocationError(code)
	if err != nil {
		return domprefs.Prefs{}, err
	}
	if perm, ok := locErr.Permission(); ok {
		return s.update(ctx, uid, func(p *domprefs.Prefs) { p.LocationPermission = perm }), locErr
	}
	return s.Get(ctx, uid), locErr
}

// Reset restores every preference to its default.
func (s *Service) Reset(ctx context.Context, uid string) domprefs.Prefs {
	return s.update(ctx, uid, func(p *domprefs.Prefs) { *p = domprefs.Defaults() })
}

// Sweep drops users not looked up for idle whose state has no write pending
// or running. A dropped user is reloaded from the store on next use. It
// returns the number dropped.
func (s *Service) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for uid, st := range s.users {
		if !st.usedAt.Before(cutoff) || !st.mu.TryLock() {
			continue
		}
		if !st.dirty && !st.writing {
			delete(s.users, uid)
			n++
		}
		st.mu.Unlock()
	}
	return n
}

// Schedule registers Sweep on cr with a cron spec such as "@every 1m".
func (s *Service) Schedule(cr *cron.Cron, spec string, idle time.Duration) (cron.EntryID, error) {
	id, err := cr.AddFunc(spec, func() { s.Sweep(idle) })
	if err != nil {
		return 0, fmt.Errorf("schedule preferences sweep %q: %w", spec, err)
	}
	return id, nil
}

// Wait blocks until every pending write has been attempted.
func (s *Service) Wait() {
	s.writers.Wait()
}

// lock returns uid's state locked, loading it if needed. A failed load serves
// defaults without marking the state loaded, so the next call retries and
// nothing is persisted over the stored copy in the meantime.
func (s *Service) lock(ctx context.Context, uid string) *state {
	s.mu.Lock()
	st, ok := s.users[uid]
	if !ok {
		st = &state{}
		s.users[uid] = st
	}
	st.usedAt = s.now()
	s.mu.Unlock()

	st.mu.Lock()
	if !st.loaded {
		p, err := s.repo.Load(ctx, uid)
		if err != nil {
			logger.FromContext(ctx).Warn("load preferences failed", zap.String("uid", uid), zap.Error(err))
			st.prefs = domprefs.Defaults()
			return st
		}
		st.prefs, st.loaded = p, true
	}
	return st
}

// update applies fn and schedules the write-through. Changes on top of an
// unloaded state are served but never persisted.
func (s *Service) update(ctx context.Context, uid string, fn func(*domprefs.Prefs)) domprefs.Prefs {
	st := s.lock(ctx, uid)
	defer st.mu.Unlock()

	fn(&st.prefs)
	out := clone(st.prefs)

	if !st.loaded {
		metrics.PrefsWriteErrorsTotal.Inc()
		logger.FromContext(ctx).Warn("preferences not loaded, change not persisted", zap.String("uid", uid))
		return out
	}
	st.dirty = true
	if !st.writing {
		st.writing = true
		s.writers.Add(1)
		go s.write(context.WithoutCancel(ctx), uid, st)
	}
	return out
}

// write persists st until no change is pending. One writer runs per user and
// always saves the latest state, so the persisted copy never goes backwards.
func (s *Service) write(ctx context.Context, uid string, st *state) {
	defer s.writers.Done()
	for {
		st.mu.Lock()
		if !st.dirty {
			st.writing = false
			st.mu.Unlock()
			return
		}
		p := clone(st.prefs)
		st.dirty = false
		st.mu.Unlock()

		wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		err := s.repo.Save(wctx, uid, p)
		cancel()
		if err != nil {
			metrics.PrefsWriteErrorsTotal.Inc()
			logger.FromContext(ctx).Error("persist preferences failed", zap.String("uid", uid), zap.Error(err))
		}
	}
}

func clone(p domprefs.Prefs) domprefs.Prefs {
	p.RecentSearches = slices.Clone(p.RecentSearches)
	p.Filter.Locations = slices.Clone(p.Filter.Locations)
	p.Filter.Amenities = slices.Clone(p.Filter.Amenities)
	return p
}
