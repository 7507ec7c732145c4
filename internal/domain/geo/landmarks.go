package geo

// Landmark is a named campus area with a catchment radius.
type Landmark struct {
	Name     string
	Point    Point
	RadiusKm float64
}

// CampusCenter is the default map center.
var CampusCenter = Point{Lat: 5.1167, Lng: -1.2833}

// DefaultZoom is the default map zoom level.
const DefaultZoom = 15

// OffCampus names a point outside every landmark.
const OffCampus = "Off Campus"

// Landmarks are checked in order; the first whose radius covers a point names it.
var Landmarks = []Landmark{
	{Name: "Science", Point: Point{Lat: 5.1167, Lng: -1.2833}, RadiusKm: 0.5},
	{Name: "North Campus", Point: Point{Lat: 5.1200, Lng: -1.2800}, RadiusKm: 0.5},
	{Name: "South Campus", Point: Point{Lat: 5.1130, Lng: -1.2860}, RadiusKm: 0.5},
	{Name: "Atlantic Hall", Point: Point{Lat: 5.1150, Lng: -1.2850}, RadiusKm: 0.3},
	{Name: "African Hall", Point: Point{Lat: 5.1170, Lng: -1.2820}, RadiusKm: 0.3},
}

// LocationName returns the first landmark covering p, or OffCampus.
func LocationName(p Point) string {
	for _, l := range Landmarks {
		if DistanceKm(p, l.Point) <= l.RadiusKm {
			return l.Name
		}
	}
	return OffCampus
}
