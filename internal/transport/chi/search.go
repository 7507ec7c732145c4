package chi

import (
	"net/http"

	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
)

// SearchText handles GET /search?q=.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	q, err := bindOptionalString(r.URL.Query(), "q")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.Search.Text(r.Context(), callerUID(r), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SearchNearby handles GET /search/nearby?lat=&lng=&radiusKm=.
func (s *Server) SearchNearby(w http.ResponseWriter, r *http.Request) {
	params, err := bindNearbyParams(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	radius := 0.0
	if params.RadiusKm != nil {
		radius = *params.RadiusKm
	}
	hs, err := s.Search.Nearby(r.Context(), geo.Point{Lat: params.Lat, Lng: params.Lng}, radius)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if hs == nil {
		hs = []searchuc.NearbyHostel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hostels": hs})
}

// SearchInBounds handles GET /search/bounds?north=&south=&east=&west=.
func (s *Server) SearchInBounds(w http.ResponseWriter, r *http.Request) {
	b, err := bindBounds(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	hs, err := s.Search.InBounds(r.Context(), b)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if hs == nil {
		hs = []domhostel.Hostel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hostels": hs})
}
