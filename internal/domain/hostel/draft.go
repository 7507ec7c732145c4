package hostel

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// Draft is the input for creating a hostel.
type Draft struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Location      string           `json:"location"`
	Address       string           `json:"address"`
	Coordinates   geo.Point        `json:"coordinates"`
	Gender        filter.Gender    `json:"gender"`
	Type          string           `json:"type"`
	Rooms         int              `json:"rooms"`
	PriceMin      int              `json:"priceMin"`
	PriceMax      int              `json:"priceMax"`
	PaymentPeriod string           `json:"paymentPeriod"`
	Amenities     []filter.Amenity `json:"amenities"`
	Contact       Contact          `json:"contactInfo"`
	Availability  string           `json:"availability"`
	Featured      bool             `json:"featured"`
}

// Validate returns per-field errors for d.
func (d Draft) Validate() error {
	errs := validation.Errors{}
	errs.Check("name", strings.TrimSpace(d.Name) != "", "Hostel name is required")
	errs.Check("location", strings.TrimSpace(d.Location) != "", "Location is required")
	errs.Check("coordinates", d.Coordinates.Valid(), "Coordinates are out of range")
	errs.Check("gender", d.Gender.IsRecordValid(), "Gender must be male, female or mixed")
	errs.Check("type", d.Type == "" || slices.Contains([]string{TypeSelfContained, TypeShared, TypeBoth}, d.Type),
		"Unknown room type")
	errs.Check("rooms", d.Rooms >= 0, "Rooms must not be negative")
	errs.Check("priceMin", d.PriceMin >= 0, "Price must not be negative")
	errs.Check("priceMax", d.PriceMax >= d.PriceMin, "Maximum price must be at least the minimum")
	errs.Check("paymentPeriod",
		d.PaymentPeriod == "" || slices.Contains([]string{PeriodSemester, PeriodYearly, PeriodMonthly}, d.PaymentPeriod),
		"Unknown payment period")
	errs.Check("availability",
		d.Availability == "" || slices.Contains([]string{Available, Limited, Full}, d.Availability),
		"Unknown availability")
	for _, a := range d.Amenities {
		if !a.IsValid() {
			errs.Add("amenities", fmt.Sprintf("Unknown amenity %q", a))
		}
	}
	return errs.Err()
}

// Fields is the document written for a new hostel. Counters start at zero and
// new hostels are unverified.
func (d Draft) Fields(createdBy string, now time.Time) map[string]any {
	availability := d.Availability
	if availability == "" {
		availability = Available
	}
	amenities := make([]any, len(d.Amenities))
	for i, a := range d.Amenities {
		amenities[i] = string(a)
	}
	phones := make([]any, len(d.Contact.Phone))
	for i, p := range d.Contact.Phone {
		phones[i] = p
	}
	return map[string]any{
		"name":        strings.TrimSpace(d.Name),
		"description": d.Description,
		"location":    strings.TrimSpace(d.Location),
		"address":     d.Address,
		"coordinates": map[string]any{
			"latitude":  d.Coordinates.Lat,
			"longitude": d.Coordinates.Lng,
		},
		"gender":        string(d.Gender),
		"type":          d.Type,
		"rooms":         int64(d.Rooms),
		"priceRange":    map[string]any{"min": int64(d.PriceMin), "max": int64(d.PriceMax), "currency": Currency},
		"paymentPeriod": d.PaymentPeriod,
		"amenities":     amenities,
		"contactInfo": map[string]any{
			"phone":    phones,
			"email":    d.Contact.Email,
			"whatsapp": d.Contact.WhatsApp,
			"website":  d.Contact.Website,
		},
		"images":        []any{},
		"averageRating": 0.0,
		"reviewCount":   int64(0),
		"favoriteCount": int64(0),
		"views":         int64(0),
		"availability":  availability,
		"featured":      d.Featured,
		"verified":      false,
		"createdBy":     createdBy,
		"createdAt":     now,
		"updatedAt":     now,
	}
}

// editableKeys are the document fields owned by a Draft. Counters,
// verification, images and authorship are never touched by an edit.
var editableKeys = []string{
	"name", "description", "location", "address", "coordinates", "gender", "type", "rooms",
	"priceRange", "paymentPeriod", "amenities", "contactInfo", "availability", "featured", "updatedAt",
}

// EditableFields is the subset of Fields an edit rewrites.
func (d Draft) EditableFields(now time.Time) map[string]any {
	all := d.Fields("", now)
	out := make(map[string]any, len(editableKeys))
	for _, k := range editableKeys {
		out[k] = all[k]
	}
	return out
}

// Draft returns h's editable fields.
func (h Hostel) Draft() Draft {
	return Draft{
		Name:          h.Name,
		Description:   h.Description,
		Location:      h.Location,
		Address:       h.Address,
		Coordinates:   h.Coordinates,
		Gender:        h.Gender,
		Type:          h.Type,
		Rooms:         h.Rooms,
		PriceMin:      h.Price.Min,
		PriceMax:      h.Price.Max,
		PaymentPeriod: h.PaymentPeriod,
		Amenities:     slices.Clone(h.Amenities),
		Contact: Contact{
			Phone:    slices.Clone(h.Contact.Phone),
			Email:    h.Contact.Email,
			WhatsApp: h.Contact.WhatsApp,
			Website:  h.Contact.Website,
		},
		Availability: h.Availability,
		Featured:     h.Featured,
	}
}

// Patch is a partial hostel edit. Nil fields are left unchanged.
type Patch struct {
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	Location      *string           `json:"location"`
	Address       *string           `json:"address"`
	Coordinates   *geo.Point        `json:"coordinates"`
	Gender        *filter.Gender    `json:"gender"`
	Type          *string           `json:"type"`
	Rooms         *int              `json:"rooms"`
	PriceMin      *int              `json:"priceMin"`
	PriceMax      *int              `json:"priceMax"`
	PaymentPeriod *string           `json:"paymentPeriod"`
	Amenities     *[]filter.Amenity `json:"amenities"`
	Contact       *Contact          `json:"contactInfo"`
	Availability  *string           `json:"availability"`
	Featured      *bool             `json:"featured"`
}

// Apply returns d with p's fields replaced. The merged draft still needs
// validating: a patch may only be valid against a particular base.
func (p Patch) Apply(d Draft) Draft {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&d.Name, p.Name)
	setStr(&d.Description, p.Description)
	setStr(&d.Location, p.Location)
	setStr(&d.Address, p.Address)
	setStr(&d.Type, p.Type)
	setStr(&d.PaymentPeriod, p.PaymentPeriod)
	setStr(&d.Availability, p.Availability)
	setInt(&d.Rooms, p.Rooms)
	setInt(&d.PriceMin, p.PriceMin)
	setInt(&d.PriceMax, p.PriceMax)
	if p.Coordinates != nil {
		d.Coordinates = *p.Coordinates
	}
	if p.Gender != nil {
		d.Gender = *p.Gender
	}
	if p.Amenities != nil {
		d.Amenities = slices.Clone(*p.Amenities)
	}
	if p.Contact != nil {
		d.Contact = *p.Contact
		d.Contact.Phone = slices.Clone(p.Contact.Phone)
	}
	if p.Featured != nil {
		d.Featured = *p.Featured
	}
	return d
}
