package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	healthuc "github.com/ucc-hostels/hostelfinder/internal/usecase/health"
)

const (
	defaultDebounce  = 300 * time.Millisecond
	maxJSONBodyBytes = 1 << 20
	// multipartOverhead is the slack above the image limit for form boundaries and fields.
	multipartOverhead = 1 << 20
)

// Deps are the services behind the API. Accounts, Profiles and Variants may be nil.
type Deps struct {
	Cache    QueryCache
	Hostels  Hostels
	Prefs    Prefs
	Search   Search
	Notices  Notices
	Live     Live
	Accounts Accounts
	Profiles Profiles
	Health   Health
	Variants ImageVariants
}

// Option configures a Server.
type Option func(*Server)

// WithDebounce sets the quiet window of the search socket.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithMaxUploadBytes bounds image upload bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// Server is the HTTP API.
type Server struct {
	Deps
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	debounce  time.Duration
	maxUpload int64
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Deps:      deps,
		logger:    logger,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		debounce:  defaultDebounce,
		maxUpload: hostel.MaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. mw is applied to every route.
func (s *Server) Handler(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/live", s.LiveSocket)
	r.Get("/ws/search", s.SearchSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.SignUp)
		r.Post("/auth/password-reset", s.PasswordReset)

		r.Route("/hostels", func(r chi.Router) {
			r.Get("/", s.ListHostels)
			r.Post("/", s.CreateHostel)
			r.Post("/more", s.LoadMoreHostels)
			r.Post("/refresh", s.RefreshHostels)
			r.Post("/retry", s.RetryHostels)

			r.Route("/{hostelID}", func(r chi.Router) {
				r.Get("/", s.GetHostel)
				r.Patch("/", s.UpdateHostel)
				r.Delete("/", s.DeleteHostel)
				r.Put("/verified", s.VerifyHostel)
				r.Post("/favorite", s.ToggleFavorite)
				r.Post("/images", s.UploadImage)
				r.Get("/reviews", s.ListReviews)
				r.Post("/reviews", s.AddReview)
				r.Post("/reviews/{reviewID}/helpful", s.MarkHelpful)
			})
		})

		r.Get("/search", s.SearchText)
		r.Get("/search/nearby", s.SearchNearby)
		r.Get("/search/bounds", s.SearchInBounds)

		r.Put("/users/{uid}/role", s.SetUserRole)

		r.Route("/me", func(r chi.Router) {
			r.Get("/profile", s.GetProfile)
			r.Patch("/profile", s.PatchProfile)
			r.Get("/favorites", s.ListFavorites)
			r.Get("/prefs", s.GetPrefs)
			r.Patch("/prefs", s.PatchPrefs)
			r.Delete("/prefs", s.ResetPrefs)
			r.Post("/location-error", s.ReportLocationError)
			r.Get("/notices", s.ListNotices)
			r.Delete("/notices/{noticeID}", s.DismissNotice)
		})
	})
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  report.Status,
		"checks":  report.Checks,
		"version": report.Version,
	})
}

// SignUp handles POST /auth/signup.
func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		s.handleDomainError(w, r, fmt.Errorf("signup: %w", domain.ErrNotImplemented))
		return
	}
	var req domauth.SignUp
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := s.Accounts.SignUp(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// PasswordReset handles POST /auth/password-reset. The response is the same
// whether or not the address has an account.
func (s *Server) PasswordReset(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		s.handleDomainError(w, r, fmt.Errorf("password reset: %w", domain.ErrNotImplemented))
		return
	}
	var req domauth.PasswordReset
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Accounts.PasswordReset(r.Context(), req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}
	return true
}
