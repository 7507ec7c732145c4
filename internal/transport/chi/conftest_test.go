package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	healthuc "github.com/ucc-hostels/hostelfinder/internal/usecase/health"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/querycache"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
)

// --- Mocks ---

type fakeCache struct {
	getFn    func(f filter.Filter, sort order.Option) (querycache.View, error)
	keyFn    func(op, key string) (querycache.View, error)
	toggleFn func(uid, hostelID string) (bool, error)
	favs     []string
}

func (c *fakeCache) Get(_ context.Context, f filter.Filter, sort order.Option) (querycache.View, error) {
	return c.getFn(f, sort)
}

func (c *fakeCache) LoadMore(_ context.Context, key string) (querycache.View, error) {
	return c.keyFn("more", key)
}

func (c *fakeCache) Refresh(_ context.Context, key string) (querycache.View, error) {
	return c.keyFn("refresh", key)
}

func (c *fakeCache) Retry(_ context.Context, key string) (querycache.View, error) {
	return c.keyFn("retry", key)
}

func (c *fakeCache) Favorites(context.Context, string) ([]string, error) { return c.favs, nil }

func (c *fakeCache) ToggleFavorite(_ context.Context, uid, hostelID string) (bool, error) {
	return c.toggleFn(uid, hostelID)
}

type fakeHostels struct {
	detailFn func(id string) (domhostel.Hostel, error)
	updateFn func(ctx context.Context, hostelID string, p domhostel.Patch) (domhostel.Hostel, error)
	uploadFn func(ctx context.Context, hostelID string, u domhostel.Upload) (domhostel.Hostel, error)
	reviews  review.Page
	err      error
}

func (h *fakeHostels) Detail(_ context.Context, id string) (domhostel.Hostel, error) {
	return h.detailFn(id)
}

func (h *fakeHostels) Create(ctx context.Context, d domhostel.Draft) (domhostel.Hostel, error) {
	if _, err := domauth.Require(ctx, domauth.RoleManager); err != nil {
		return domhostel.Hostel{}, err
	}
	return domhostel.Hostel{ID: "new", Name: d.Name}, h.err
}

func (h *fakeHostels) Update(ctx context.Context, hostelID string, p domhostel.Patch) (domhostel.Hostel, error) {
	return h.updateFn(ctx, hostelID, p)
}

func (h *fakeHostels) Verify(ctx context.Context, _ string, _ bool) error {
	_, err := domauth.Require(ctx, domauth.RoleAdmin)
	return err
}

func (h *fakeHostels) Delete(ctx context.Context, _ string) error {
	_, err := domauth.Require(ctx, domauth.RoleAdmin)
	return err
}

func (h *fakeHostels) Reviews(context.Context, string, string) (review.Page, error) {
	return h.reviews, h.err
}

func (h *fakeHostels) AddReview(ctx context.Context, hostelID string, d review.Draft) (review.Review, error) {
	if _, err := domauth.Require(ctx, domauth.RoleUser); err != nil {
		return review.Review{}, err
	}
	if err := d.Validate(); err != nil {
		return review.Review{}, err
	}
	return review.Review{ID: "r1", HostelID: hostelID, Rating: d.Rating, Comment: d.Comment}, nil
}

func (h *fakeHostels) MarkHelpful(context.Context, string, string) error { return h.err }

func (h *fakeHostels) UploadImage(ctx context.Context, hostelID string, u domhostel.Upload) (domhostel.Hostel, error) {
	return h.uploadFn(ctx, hostelID, u)
}

// fakePrefs keeps real preference state per user.
type fakePrefs struct {
	mu    sync.Mutex
	users map[string]domprefs.Prefs
}

func newFakePrefs() *fakePrefs { return &fakePrefs{users: map[string]domprefs.Prefs{}} }

func (p *fakePrefs) update(uid string, fn func(*domprefs.Prefs)) domprefs.Prefs {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.users[uid]
	if !ok {
		st = domprefs.Defaults()
	}
	fn(&st)
	p.users[uid] = st
	return st
}

func (p *fakePrefs) Get(_ context.Context, uid string) domprefs.Prefs {
	return p.update(uid, func(*domprefs.Prefs) {})
}

func (p *fakePrefs) SetTheme(_ context.Context, uid string, t domprefs.Theme) (domprefs.Prefs, error) {
	return p.update(uid, func(st *domprefs.Prefs) { st.Theme = t }), nil
}

func (p *fakePrefs) SetSort(_ context.Context, uid string, o order.Option) (domprefs.Prefs, error) {
	return p.update(uid, func(st *domprefs.Prefs) { st.Sort = o }), nil
}

func (p *fakePrefs) SetViewMode(_ context.Context, uid string, v domprefs.ViewMode) (domprefs.Prefs, error) {
	return p.update(uid, func(st *domprefs.Prefs) { st.ViewMode = v }), nil
}

func (p *fakePrefs) SetFilter(_ context.Context, uid string, params filter.Params) (domprefs.Prefs, error) {
	return p.update(uid, func(st *domprefs.Prefs) { st.Filter = params }), nil
}

func (p *fakePrefs) ResetFilters(_ context.Context, uid string) domprefs.Prefs {
	return p.update(uid, func(st *domprefs.Prefs) { st.Filter = filter.DefaultParams() })
}

func (p *fakePrefs) ClearRecentSearches(_ context.Context, uid string) domprefs.Prefs {
	return p.update(uid, func(st *domprefs.Prefs) { st.RecentSearches = []string{} })
}

func (p *fakePrefs) SetOnboardingSeen(_ context.Context, uid string, seen bool) domprefs.Prefs {
	return p.update(uid, func(st *domprefs.Prefs) { st.OnboardingSeen = seen })
}

func (p *fakePrefs) SetLocationPermission(_ context.Context, uid string, perm geo.Permission) (domprefs.Prefs, error) {
	return p.update(uid, func(st *domprefs.Prefs) { st.LocationPermission = perm }), nil
}

func (p *fakePrefs) ReportLocationError(_ context.Context, uid string, code int) (domprefs.Prefs, error) {
	le, err := geo.ParseLocationError(code)
	if err != nil {
		return domprefs.Prefs{}, err
	}
	st := p.update(uid, func(st *domprefs.Prefs) {
		if perm, ok := le.Permission(); ok {
			st.LocationPermission = perm
		}
	})
	return st, le
}

func (p *fakePrefs) Reset(_ context.Context, uid string) domprefs.Prefs {
	return p.update(uid, func(st *domprefs.Prefs) { *st = domprefs.Defaults() })
}

type fakeSearch struct {
	mu    sync.Mutex
	terms []string
	res   searchuc.Result
}

func (s *fakeSearch) MinTermLength() int { return 3 }

func (s *fakeSearch) Text(_ context.Context, _, term string) (searchuc.Result, error) {
	s.mu.Lock()
	s.terms = append(s.terms, term)
	s.mu.Unlock()
	return s.res, nil
}

func (s *fakeSearch) searched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

func (s *fakeSearch) Nearby(_ context.Context, origin geo.Point, _ float64) ([]searchuc.NearbyHostel, error) {
	if !origin.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return []searchuc.NearbyHostel{{Hostel: domhostel.Hostel{ID: "near"}, DistanceKm: 0.4, Distance: "400m"}}, nil
}

func (s *fakeSearch) InBounds(_ context.Context, b geo.Bounds) ([]domhostel.Hostel, error) {
	if !b.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return nil, nil
}

type fakeHealth struct{ report healthuc.Report }

func (h fakeHealth) Check(context.Context) healthuc.Report { return h.report }

type fakeAccounts struct{ err error }

func (a fakeAccounts) SignUp(_ context.Context, req domauth.SignUp) (user.Profile, error) {
	if err := req.Validate(); err != nil {
		return user.Profile{}, err
	}
	if a.err != nil {
		return user.Profile{}, a.err
	}
	return user.Profile{UID: "u-new", Email: req.Email, Name: req.Name, Role: domauth.RoleUser}, nil
}

func (a fakeAccounts) PasswordReset(_ context.Context, req domauth.PasswordReset) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return a.err
}

// fakeProfiles keeps profiles by UID and checks roles like the real service.
type fakeProfiles struct {
	mu    sync.Mutex
	users map[string]user.Profile
}

func newFakeProfiles(ps ...user.Profile) *fakeProfiles {
	f := &fakeProfiles{users: map[string]user.Profile{}}
	for _, p := range ps {
		f.users[p.UID] = p
	}
	return f
}

func (f *fakeProfiles) Get(ctx context.Context) (user.Profile, error) {
	id, err := domauth.Require(ctx, domauth.RoleUser)
	if err != nil {
		return user.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.users[id.UID]
	if !ok {
		return user.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Update(ctx context.Context, patch user.Patch) (user.Profile, error) {
	id, err := domauth.Require(ctx, domauth.RoleUser)
	if err != nil {
		return user.Profile{}, err
	}
	if err := patch.Validate(); err != nil {
		return user.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.users[id.UID]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.YearOfStudy != nil {
		p.YearOfStudy = *patch.YearOfStudy
	}
	f.users[id.UID] = p
	return p, nil
}

func (f *fakeProfiles) SetRole(ctx context.Context, uid string, role domauth.Role) error {
	if _, err := domauth.Require(ctx, domauth.RoleAdmin); err != nil {
		return err
	}
	if !role.IsValid() {
		return domain.ErrInvalidInput
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.users[uid]
	if !ok {
		return domain.ErrNotFound
	}
	p.Role = role
	f.users[uid] = p
	return nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (domauth.Identity, error) {
	switch token {
	case "good":
		return domauth.Identity{UID: "u1", Role: domauth.RoleUser}, nil
	case "expired":
		return domauth.Identity{}, domauth.NewError(domauth.CodeIDTokenExpired, nil)
	default:
		return domauth.Identity{}, errors.New("backend exploded")
	}
}

type fakeVariants struct{}

func (fakeVariants) Variants(publicID string) map[string]string {
	return map[string]string{"card": "https://cdn/card/" + publicID}
}

// --- Harness ---

type harness struct {
	cache    *fakeCache
	hostels  *fakeHostels
	prefs    *fakePrefs
	search   *fakeSearch
	notices  *notice.Board
	profiles *fakeProfiles
	srv      *Server
	handler  http.Handler
}

func newHarness(t *testing.T, lv Live) *harness {
	t.Helper()
	h := &harness{
		cache:    &fakeCache{},
		hostels:  &fakeHostels{},
		prefs:    newFakePrefs(),
		search:   &fakeSearch{},
		notices:  notice.New(0),
		profiles: newFakeProfiles(user.Profile{UID: "u1", Email: "ama@ucc.edu.gh", Name: "Ama", Role: domauth.RoleUser}),
	}
	h.srv = NewServer(Deps{
		Cache:    h.cache,
		Hostels:  h.hostels,
		Prefs:    h.prefs,
		Search:   h.search,
		Notices:  h.notices,
		Live:     lv,
		Accounts: fakeAccounts{},
		Profiles: h.profiles,
		Health:   fakeHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		Variants: fakeVariants{},
	}, nil, WithDebounce(20*time.Millisecond))
	h.handler = h.srv.Handler(AuthMiddleware(nil))
	return h
}

// do serves one request, authenticated with a dev token when uid is set.
func (h *harness) do(method, target, uid string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+uid)
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}
