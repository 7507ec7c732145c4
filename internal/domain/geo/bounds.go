package geo

// BoundsPadding is the fraction of each axis span added on every side by BoundsFromPoints.
const BoundsPadding = 0.1

// Bounds is a north/south/east/west rectangle in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether p lies within b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// Valid reports whether b is a non-inverted rectangle with valid corners.
func (b Bounds) Valid() bool {
	return b.South <= b.North && b.West <= b.East &&
		ValidateCoordinates(b.North, b.East) && ValidateCoordinates(b.South, b.West)
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// BoundsFromPoints returns the enclosing rectangle of points padded by
// BoundsPadding of the span on each side. ok is false for empty input.
func BoundsFromPoints(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{North: points[0].Lat, South: points[0].Lat, East: points[0].Lng, West: points[0].Lng}
	for _, p := range points[1:] {
		b.North = max(b.North, p.Lat)
		b.South = min(b.South, p.Lat)
		b.East = max(b.East, p.Lng)
		b.West = min(b.West, p.Lng)
	}

	latPad := (b.North - b.South) * BoundsPadding
	lngPad := (b.East - b.West) * BoundsPadding
	b.North += latPad
	b.South -= latPad
	b.East += lngPad
	b.West -= lngPad
	return b, true
}
