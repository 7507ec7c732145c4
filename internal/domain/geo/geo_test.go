package geo

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestDistanceKm_SamePoint(t *testing.T) {
	for _, p := range []Point{{0, 0}, CampusCenter, {-33.8688, 151.2093}, {90, 180}} {
		if d := DistanceKm(p, p); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		a := Point{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
		b := Point{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
		if ab, ba := DistanceKm(a, b), DistanceKm(b, a); !almost(ab, ba, 1e-9) {
			t.Fatalf("asymmetric: d(%v,%v)=%v d(b,a)=%v", a, b, ab, ba)
		}
	}
}

func TestDistanceKm_Known(t *testing.T) {
	// New York -> London, about 5570 km.
	d := DistanceKm(Point{40.7128, -74.0060}, Point{51.5074, -0.1278})
	if d < 5550 || d > 5590 {
		t.Fatalf("want ~5570 km, got %.1f", d)
	}

	// 0.01 degrees of latitude is about 1.11 km.
	d = DistanceKm(Point{5.10, -1.28}, Point{5.11, -1.28})
	if !almost(d, 1.112, 0.001) {
		t.Fatalf("want ~1.112 km, got %.4f", d)
	}
}

func TestWithinRadius(t *testing.T) {
	p := Point{Lat: 5.1257, Lng: -1.2833} // ~1 km north
	if !WithinRadius(CampusCenter, p, 2) {
		t.Error("expected point within 2 km")
	}
	if WithinRadius(CampusCenter, p, 0.5) {
		t.Error("expected point outside 0.5 km")
	}
}

type place struct {
	name string
	at   Point
}

func (p place) Position() Point { return p.at }

func TestNearby(t *testing.T) {
	items := []place{
		{"far", Point{5.2, -1.2}},
		{"mid", Point{5.1257, -1.2833}},
		{"here", CampusCenter},
		{"close", Point{5.1185, -1.2833}},
	}
	got := Nearby(CampusCenter, items, 2)
	want := []string{"here", "close", "mid"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Item.name != name {
			t.Errorf("result %d = %s, want %s", i, got[i].Item.name, name)
		}
	}
	if got[0].DistanceKm != 0 {
		t.Errorf("distance of origin = %v", got[0].DistanceKm)
	}
}

func TestBounds_Contains_Inclusive(t *testing.T) {
	b := Bounds{North: 5.2, South: 5.1, East: -1.2, West: -1.3}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5.15, -1.25}, true},
		{Point{5.2, -1.2}, true},
		{Point{5.1, -1.3}, true},
		{Point{5.2000001, -1.25}, false},
		{Point{5.15, -1.3000001}, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestBoundsFromPoints_Empty(t *testing.T) {
	b, ok := BoundsFromPoints(nil)
	if ok {
		t.Fatal("expected ok=false for empty input")
	}
	if b != (Bounds{}) {
		t.Errorf("expected zero bounds, got %+v", b)
	}
}

func TestBoundsFromPoints_Padding(t *testing.T) {
	points := []Point{{5.10, -1.30}, {5.20, -1.20}, {5.15, -1.25}}
	b, ok := BoundsFromPoints(points)
	if !ok {
		t.Fatal("expected bounds")
	}

	const eps = 1e-12
	latPad := (5.20 - 5.10) * BoundsPadding
	lngPad := (-1.20 - -1.30) * BoundsPadding
	if !almost(b.North, 5.20+latPad, eps) || !almost(b.South, 5.10-latPad, eps) {
		t.Errorf("lat bounds = [%v, %v]", b.South, b.North)
	}
	if !almost(b.East, -1.20+lngPad, eps) || !almost(b.West, -1.30-lngPad, eps) {
		t.Errorf("lng bounds = [%v, %v]", b.West, b.East)
	}
	for _, p := range points {
		if !(p.Lat > b.South && p.Lat < b.North && p.Lng > b.West && p.Lng < b.East) {
			t.Errorf("%v not strictly inside %+v", p, b)
		}
	}
}

func TestBoundsFromPoints_SinglePoint(t *testing.T) {
	b, ok := BoundsFromPoints([]Point{CampusCenter})
	if !ok {
		t.Fatal("expected bounds")
	}
	if math.IsNaN(b.North) || b.North != CampusCenter.Lat || b.West != CampusCenter.Lng {
		t.Errorf("degenerate bounds = %+v", b)
	}
	if !b.Contains(CampusCenter) {
		t.Error("single point must be contained")
	}
}

func TestBounds_ValidAndCenter(t *testing.T) {
	b := Bounds{North: 5.2, South: 5.1, East: -1.2, West: -1.3}
	if !b.Valid() {
		t.Error("expected valid bounds")
	}
	if (Bounds{North: 5.1, South: 5.2}).Valid() {
		t.Error("inverted bounds accepted")
	}
	c := b.Center()
	if !almost(c.Lat, 5.15, 1e-12) || !almost(c.Lng, -1.25, 1e-12) {
		t.Errorf("Center() = %v", c)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 m"},
		{0.85, "850 m"},
		{0.0004, "0 m"},
		{0.5006, "501 m"},
		{1, "1.0 km"},
		{1.34, "1.3 km"},
		{12.06, "12.1 km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestLocationName(t *testing.T) {
	if got := LocationName(CampusCenter); got != "Science" {
		t.Errorf("LocationName(center) = %q", got)
	}
	if got := LocationName(Point{5.1200, -1.2800}); got != "North Campus" {
		t.Errorf("LocationName(north) = %q", got)
	}
	if got := LocationName(Point{5.2, -1.2}); got != OffCampus {
		t.Errorf("LocationName(far) = %q", got)
	}
}

func TestValidateCoordinates(t *testing.T) {
	if !ValidateCoordinates(90, -180) || ValidateCoordinates(90.1, 0) || ValidateCoordinates(0, 181) {
		t.Error("ValidateCoordinates mismatch")
	}
}

func TestParseLocationError(t *testing.T) {
	tests := []struct {
		code      int
		want      LocationErrorCode
		retryable bool
	}{
		{1, PermissionDeniedCode, false},
		{2, PositionUnavailableCode, true},
		{3, TimeoutCode, true},
	}
	for _, tt := range tests {
		e, err := ParseLocationError(tt.code)
		if err != nil {
			t.Fatalf("code %d: %v", tt.code, err)
		}
		if e.Code != tt.want || e.Retryable() != tt.retryable {
			t.Errorf("code %d: got %+v retryable=%v", tt.code, e, e.Retryable())
		}
		if domain.KindOf(e) != domain.KindGeolocation {
			t.Errorf("code %d: kind %q", tt.code, domain.KindOf(e))
		}
		perm, changes := e.Permission()
		if changes != (tt.code == 1) || (changes && perm != PermissionDenied) {
			t.Errorf("code %d: Permission() = %q, %v", tt.code, perm, changes)
		}
	}

	if _, err := ParseLocationError(7); err == nil {
		t.Error("expected error for unknown code")
	}
}
