package chi

import (
	"context"

	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	healthuc "github.com/ucc-hostels/hostelfinder/internal/usecase/health"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/live"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/querycache"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
)

// QueryCache serves paginated hostel lists and favorite state.
type QueryCache interface {
	Get(ctx context.Context, f filter.Filter, sort order.Option) (querycache.View, error)
	LoadMore(ctx context.Context, key string) (querycache.View, error)
	Refresh(ctx context.Context, key string) (querycache.View, error)
	Retry(ctx context.Context, key string) (querycache.View, error)
	Favorites(ctx context.Context, uid string) ([]string, error)
	ToggleFavorite(ctx context.Context, uid, hostelID string) (bool, error)
}

// Hostels serves hostel detail, admin operations and reviews.
type Hostels interface {
	Detail(ctx context.Context, id string) (domhostel.Hostel, error)
	Create(ctx context.Context, d domhostel.Draft) (domhostel.Hostel, error)
	Update(ctx context.Context, hostelID string, p domhostel.Patch) (domhostel.Hostel, error)
	Verify(ctx context.Context, hostelID string, verified bool) error
	Delete(ctx context.Context, hostelID string) error
	Reviews(ctx context.Context, hostelID, cursor string) (review.Page, error)
	AddReview(ctx context.Context, hostelID string, d review.Draft) (review.Review, error)
	MarkHelpful(ctx context.Context, hostelID, reviewID string) error
	UploadImage(ctx context.Context, hostelID string, u domhostel.Upload) (domhostel.Hostel, error)
}

// Prefs is the per-user preference store.
type Prefs interface {
	Get(ctx context.Context, uid string) domprefs.Prefs
	SetTheme(ctx context.Context, uid string, t domprefs.Theme) (domprefs.Prefs, error)
	SetSort(ctx context.Context, uid string, o order.Option) (domprefs.Prefs, error)
	SetViewMode(ctx context.Context, uid string, v domprefs.ViewMode) (domprefs.Prefs, error)
	SetFilter(ctx context.Context, uid string, params filter.Params) (domprefs.Prefs, error)
	ResetFilters(ctx context.Context, uid string) domprefs.Prefs
	ClearRecentSearches(ctx context.Context, uid string) domprefs.Prefs
	SetOnboardingSeen(ctx context.Context, uid string, seen bool) domprefs.Prefs
	SetLocationPermission(ctx context.Context, uid string, perm geo.Permission) (domprefs.Prefs, error)
	ReportLocationError(ctx context.Context, uid string, code int) (domprefs.Prefs, error)
	Reset(ctx context.Context, uid string) domprefs.Prefs
}

// Search runs text and location discovery.
type Search interface {
	MinTermLength() int
	Text(ctx context.Context, uid, term string) (searchuc.Result, error)
	Nearby(ctx context.Context, origin geo.Point, radiusKm float64) ([]searchuc.NearbyHostel, error)
	InBounds(ctx context.Context, b geo.Bounds) ([]domhostel.Hostel, error)
}

// Notices lists and dismisses transient per-user messages.
type Notices interface {
	List(uid string) []notice.Notice
	Dismiss(uid, id string)
}

// Live follows store resources on behalf of a websocket view.
type Live interface {
	Subscribe(ctx context.Context, view string, res live.Resource, uid string, send func(live.Event)) error
	Unsubscribe(view string, res live.Resource)
	Close(view string)
}

// Accounts creates accounts and starts password resets.
type Accounts interface {
	SignUp(ctx context.Context, req domauth.SignUp) (user.Profile, error)
	PasswordReset(ctx context.Context, req domauth.PasswordReset) error
}

// Profiles reads and edits user profiles.
type Profiles interface {
	Get(ctx context.Context) (user.Profile, error)
	Update(ctx context.Context, p user.Patch) (user.Profile, error)
	SetRole(ctx context.Context, uid string, role domauth.Role) error
}

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domauth.Identity, error)
}

// Health reports component health.
type Health interface {
	Check(ctx context.Context) healthuc.Report
}

// ImageVariants derives display URLs from an image public ID.
type ImageVariants interface {
	Variants(publicID string) map[string]string
}
