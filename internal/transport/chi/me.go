package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domprefs "github.com/ucc-hostels/hostelfinder/internal/domain/prefs"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// GetPrefs handles GET /me/prefs.
func (s *Server) GetPrefs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Prefs.Get(r.Context(), id.UID))
}

// PrefsPatch is a partial preference update. Nil fields are left unchanged.
type PrefsPatch struct {
	Theme               *domprefs.Theme    `json:"theme"`
	Sort                *order.Option      `json:"sortBy"`
	ViewMode            *domprefs.ViewMode `json:"viewMode"`
	Filters             *filter.Params     `json:"filters"`
	OnboardingSeen      *bool              `json:"hasSeenOnboarding"`
	LocationPermission  *geo.Permission    `json:"locationPermission"`
	ResetFilters        bool               `json:"resetFilters"`
	ClearRecentSearches bool               `json:"clearRecentSearches"`
}

// validate checks every field up front so a rejected patch writes nothing.
func (p PrefsPatch) validate() error {
	errs := validation.Errors{}
	if p.Theme != nil {
		errs.Check("theme", p.Theme.IsValid(), "Unknown theme")
	}
	if p.Sort != nil {
		errs.Check("sortBy", p.Sort.IsValid(), "Unknown sort option")
	}
	if p.ViewMode != nil {
		errs.Check("viewMode", p.ViewMode.IsValid(), "Unknown view mode")
	}
	if p.LocationPermission != nil {
		errs.Check("locationPermission", p.LocationPermission.IsValid(), "Unknown location permission")
	}
	if p.Filters != nil {
		if _, err := filter.New(*p.Filters); err != nil {
			var ve *validation.Error
			if !errors.As(err, &ve) {
				return err
			}
			for field, msg := range ve.Fields {
				errs.Add("filters."+field, msg)
			}
		}
	}
	return errs.Err()
}

// PatchPrefs handles PATCH /me/prefs.
func (s *Server) PatchPrefs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var p PrefsPatch
	if !decodeBody(w, r, &p) {
		return
	}
	if err := p.validate(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, uid := r.Context(), id.UID
	steps := []func() error{}
	if p.ResetFilters {
		steps = append(steps, func() error { s.Prefs.ResetFilters(ctx, uid); return nil })
	}
	if p.Filters != nil {
		steps = append(steps, func() error { _, err := s.Prefs.SetFilter(ctx, uid, *p.Filters); return err })
	}
	if p.Theme != nil {
		steps = append(steps, func() error { _, err := s.Prefs.SetTheme(ctx, uid, *p.Theme); return err })
	}
	if p.Sort != nil {
		steps = append(steps, func() error { _, err := s.Prefs.SetSort(ctx, uid, *p.Sort); return err })
	}
	if p.ViewMode != nil {
		steps = append(steps, func() error { _, err := s.Prefs.SetViewMode(ctx, uid, *p.ViewMode); return err })
	}
	if p.OnboardingSeen != nil {
		steps = append(steps, func() error { s.Prefs.SetOnboardingSeen(ctx, uid, *p.OnboardingSeen); return nil })
	}
	if p.LocationPermission != nil {
		steps = append(steps, func() error {
			_, err := s.Prefs.SetLocationPermission(ctx, uid, *p.LocationPermission)
			return err
		})
	}
	if p.ClearRecentSearches {
		steps = append(steps, func() error { s.Prefs.ClearRecentSearches(ctx, uid); return nil })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Prefs.Get(ctx, uid))
}

// ResetPrefs handles DELETE /me/prefs.
func (s *Server) ResetPrefs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Prefs.Reset(r.Context(), id.UID))
}

type locationErrorRequest struct {
	Code int `json:"code"`
}

// LocationErrorResponse carries the classified failure and the resulting preferences.
type LocationErrorResponse struct {
	Error ErrorResponse  `json:"error"`
	Prefs domprefs.Prefs `json:"prefs"`
}

// ReportLocationError handles POST /me/location-error with the browser's numeric code.
func (s *Server) ReportLocationError(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req locationErrorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.Prefs.ReportLocationError(r.Context(), id.UID, req.Code)
	var le *geo.LocationError
	if !errors.As(err, &le) {
		if err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.handleDomainError(w, r, err)
		return
	}
	_, body := classify(le)
	writeJSON(w, http.StatusOK, LocationErrorResponse{Error: body, Prefs: p})
}

// ListNotices handles GET /me/notices.
func (s *Server) ListNotices(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Notices.List(id.UID))
}

// DismissNotice handles DELETE /me/notices/{noticeID}.
func (s *Server) DismissNotice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	s.Notices.Dismiss(id.UID, chi.URLParam(r, "noticeID"))
	w.WriteHeader(http.StatusNoContent)
}
