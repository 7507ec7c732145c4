// Package search implements text search and map discovery over hostels.
package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
)

// Config tunes search.
type Config struct {
	MinTermLength  int
	ScanLimit      int
	NearbyRadiusKm float64
}

func (c *Config) applyDefaults() {
	if c.MinTermLength <= 0 {
		c.MinTermLength = 3
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = 200
	}
	if c.NearbyRadiusKm <= 0 {
		c.NearbyRadiusKm = 2
	}
}

// Result is a list of hostels with the map viewport that fits them.
type Result struct {
	Hostels []hostel.Hostel `json:"hostels"`
	// Bounds is nil when no returned hostel has usable coordinates.
	Bounds *geo.Bounds `json:"bounds"`
}

// NearbyHostel is a hostel annotated with its distance from the origin.
type NearbyHostel struct {
	hostel.Hostel
	DistanceKm float64 `json:"distanceKm"`
	Distance   string  `json:"distance"`
}

// Service handles text search and location discovery.
type Service struct {
	hostels Scanner
	recent  RecentRecorder
	cfg     Config
}

// New creates a search service. recent can be nil.
func New(hostels Scanner, recent RecentRecorder, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{hostels: hostels, recent: recent, cfg: cfg}
}

// MinTermLength is the shortest term Text searches for.
func (s *Service) MinTermLength() int { return s.cfg.MinTermLength }

// Text returns hostels whose name, location, description or any amenity
// contains term, ignoring case. Terms shorter than the minimum return
// nothing. Executed searches are recorded for uid when uid is set.
func (s *Service) Text(ctx context.Context, uid, term string) (Result, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < s.cfg.MinTermLength {
		return Result{Hostels: []hostel.Hostel{}}, nil
	}

	all, err := s.hostels.Scan(ctx, s.cfg.ScanLimit)
	if err != nil {
		return Result{}, fmt.Errorf("search %q: %w", term, err)
	}
	if uid != "" && s.recent != nil {
		s.recent.AddRecentSearch(ctx, uid, term)
	}

	needle := strings.ToLower(term)
	matched := make([]hostel.Hostel, 0, len(all))
	for _, h := range all {
		if matches(h, needle) {
			matched = append(matched, h)
		}
	}
	return Result{Hostels: matched, Bounds: FitBounds(matched)}, nil
}

func matches(h hostel.Hostel, needle string) bool {
	if strings.Contains(strings.ToLower(h.Name), needle) ||
		strings.Contains(strings.ToLower(h.Location), needle) ||
		strings.Contains(strings.ToLower(h.Description), needle) {
		return true
	}
	for _, a := range h.Amenities {
		if strings.Contains(strings.ToLower(string(a)), needle) {
			return true
		}
	}
	return false
}

// Nearby returns hostels within radiusKm of origin, nearest first.
// A non-positive radius uses the configured default.
func (s *Service) Nearby(ctx context.Context, origin geo.Point, radiusKm float64) ([]NearbyHostel, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("origin %v: %w", origin, domain.ErrInvalidInput)
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.NearbyRadiusKm
	}

	all, err := s.hostels.Scan(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("nearby hostels: %w", err)
	}
	ranked := geo.Nearby(origin, located(all), radiusKm)
	out := make([]NearbyHostel, len(ranked))
	for i, r := range ranked {
		out[i] = NearbyHostel{Hostel: r.Item, DistanceKm: r.DistanceKm, Distance: geo.FormatDistance(r.DistanceKm)}
	}
	return out, nil
}

// InBounds returns hostels whose coordinates fall within b.
func (s *Service) InBounds(ctx context.Context, b geo.Bounds) ([]hostel.Hostel, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("bounds %+v: %w", b, domain.ErrInvalidInput)
	}
	all, err := s.hostels.Scan(ctx, s.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("hostels in bounds: %w", err)
	}
	out := make([]hostel.Hostel, 0, len(all))
	for _, h := range located(all) {
		if b.Contains(h.Coordinates) {
			out = append(out, h)
		}
	}
	return out, nil
}

// FitBounds returns the padded viewport over hostels with valid coordinates.
func FitBounds(hs []hostel.Hostel) *geo.Bounds {
	points := make([]geo.Point, 0, len(hs))
	for _, h := range located(hs) {
		points = append(points, h.Coordinates)
	}
	b, ok := geo.BoundsFromPoints(points)
	if !ok {
		return nil
	}
	return &b
}

// located drops hostels without usable coordinates. Zero coordinates are
// the decoder's value for a missing position.
func located(hs []hostel.Hostel) []hostel.Hostel {
	out := make([]hostel.Hostel, 0, len(hs))
	for _, h := range hs {
		if h.Coordinates.Valid() && h.Coordinates != (geo.Point{}) {
			out = append(out, h)
		}
	}
	return out
}
