package filter

// Amenity is an enumerated hostel amenity tag.
type Amenity string

// Amenity tags.
const (
	WiFi            Amenity = "wifi"
	Security        Amenity = "security"
	Water           Amenity = "water"
	Electricity     Amenity = "electricity"
	Meals           Amenity = "meals"
	Parking         Amenity = "parking"
	StudyArea       Amenity = "study-area"
	Laundry         Amenity = "laundry"
	Kitchen         Amenity = "kitchen"
	Bedding         Amenity = "bedding"
	Furnished       Amenity = "furnished"
	AirConditioning Amenity = "air-conditioning"
	Fan             Amenity = "fan"
	TV              Amenity = "tv"
	Fridge          Amenity = "fridge"
	Generator       Amenity = "generator"
)

// Amenities lists every known amenity tag.
var Amenities = []Amenity{
	WiFi, Security, Water, Electricity, Meals, Parking, StudyArea, Laundry,
	Kitchen, Bedding, Furnished, AirConditioning, Fan, TV, Fridge, Generator,
}

// IsValid checks if the amenity is a known tag.
func (a Amenity) IsValid() bool {
	for _, known := range Amenities {
		if a == known {
			return true
		}
	}
	return false
}

// Gender is the hostel occupancy category.
type Gender string

// Gender constants. Any means no constraint.
const (
	Male   Gender = "male"
	Female Gender = "female"
	Mixed  Gender = "mixed"
	Any    Gender = "all"
)

// IsValid checks if the gender is a supported value. Empty is treated as Any.
func (g Gender) IsValid() bool {
	return g == "" || g == Male || g == Female || g == Mixed || g == Any
}

// IsRecordValid reports whether g may appear on a stored hostel.
func (g Gender) IsRecordValid() bool {
	return g == Male || g == Female || g == Mixed
}
