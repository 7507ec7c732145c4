package geo

import (
	"cmp"
	"math"
	"slices"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p lies within the coordinate ranges.
func (p Point) Valid() bool { return ValidateCoordinates(p.Lat, p.Lng) }

// DistanceKm returns the great-circle distance in kilometres between a and b.
// It is symmetric and exactly zero for identical points.
func DistanceKm(a, b Point) float64 {
	lat1r := a.Lat * math.Pi / 180
	lat2r := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// WithinRadius reports whether p is at most radiusKm from center.
func WithinRadius(center, p Point, radiusKm float64) bool {
	return DistanceKm(center, p) <= radiusKm
}

// Located is anything with a position.
type Located interface {
	Position() Point
}

// Ranked pairs an item with its distance from an origin.
type Ranked[T Located] struct {
	Item       T
	DistanceKm float64
}

// Nearby annotates items with their distance from origin, keeps those within
// radiusKm and sorts them nearest first. Equal distances keep input order.
func Nearby[T Located](origin Point, items []T, radiusKm float64) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		d := DistanceKm(origin, it.Position())
		if d <= radiusKm {
			out = append(out, Ranked[T]{Item: it, DistanceKm: d})
		}
	}
	slices.SortStableFunc(out, func(a, b Ranked[T]) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return out
}
