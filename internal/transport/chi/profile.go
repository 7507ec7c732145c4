package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
)

func (s *Server) profiles(w http.ResponseWriter, r *http.Request) bool {
	if s.Profiles == nil {
		s.handleDomainError(w, r, fmt.Errorf("profiles: %w", domain.ErrNotImplemented))
		return false
	}
	return true
}

// GetProfile handles GET /me/profile.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	if !s.profiles(w, r) {
		return
	}
	p, err := s.Profiles.Get(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PatchProfile handles PATCH /me/profile.
func (s *Server) PatchProfile(w http.ResponseWriter, r *http.Request) {
	if !s.profiles(w, r) {
		return
	}
	var patch user.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	p, err := s.Profiles.Update(r.Context(), patch)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type roleRequest struct {
	Role domauth.Role `json:"role"`
}

// SetUserRole handles PUT /users/{uid}/role.
func (s *Server) SetUserRole(w http.ResponseWriter, r *http.Request) {
	if !s.profiles(w, r) {
		return
	}
	var req roleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Profiles.SetRole(r.Context(), chi.URLParam(r, "uid"), req.Role); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
