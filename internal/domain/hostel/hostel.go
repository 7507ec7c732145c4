// Package hostel defines the hostel record and its document shape.
package hostel

import (
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
)

// Collection is the store collection holding hostels.
const Collection = "hostels"

// Document field names used in queries and partial writes.
const (
	FieldAverageRating = "averageRating"
	FieldReviewCount   = "reviewCount"
	FieldFavoriteCount = "favoriteCount"
	FieldViews         = "views"
	FieldVerified      = "verified"
	FieldFeatured      = "featured"
	FieldGender        = "gender"
	FieldLocation      = "location"
	FieldAmenities     = "amenities"
	FieldPriceMin      = "priceRange.min"
	FieldPriceMax      = "priceRange.max"
	FieldImages        = "images"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
)

// Currency is the only currency prices are listed in.
const Currency = "GHS"

// Room types.
const (
	TypeSelfContained = "self-contained"
	TypeShared        = "shared"
	TypeBoth          = "both"
)

// Payment periods.
const (
	PeriodSemester = "semester"
	PeriodYearly   = "yearly"
	PeriodMonthly  = "monthly"
)

// Availability states.
const (
	Available = "available"
	Limited   = "limited"
	Full      = "full"
)

// PriceRange is the cheapest and dearest room price.
type PriceRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}

// Overlaps reports whether some price in r falls within [lo, hi].
func (r PriceRange) Overlaps(lo, hi int) bool {
	return r.Max >= lo && r.Min <= hi
}

// Image describes one uploaded hostel picture.
type Image struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId"`
	Caption    string    `json:"caption,omitempty"`
	IsPrimary  bool      `json:"isPrimary"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Contact holds the ways to reach a hostel.
type Contact struct {
	Phone    []string `json:"phone"`
	Email    string   `json:"email,omitempty"`
	WhatsApp string   `json:"whatsapp,omitempty"`
	Website  string   `json:"website,omitempty"`
}

// Hostel is a typed hostel record.
type Hostel struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Location      string           `json:"location"`
	Address       string           `json:"address"`
	Coordinates   geo.Point        `json:"coordinates"`
	Gender        filter.Gender    `json:"gender"`
	Type          string           `json:"type"`
	Rooms         int              `json:"rooms"`
	Price         PriceRange       `json:"priceRange"`
	PaymentPeriod string           `json:"paymentPeriod"`
	Amenities     []filter.Amenity `json:"amenities"`
	Contact       Contact          `json:"contactInfo"`
	Images        []Image          `json:"images"`
	AverageRating float64          `json:"averageRating"`
	ReviewCount   int              `json:"reviewCount"`
	FavoriteCount int              `json:"favoriteCount"`
	Views         int              `json:"views"`
	Availability  string           `json:"availability"`
	Featured      bool             `json:"featured"`
	Verified      bool             `json:"verified"`
	OwnerID       string           `json:"ownerId,omitempty"`
	CreatedBy     string           `json:"createdBy,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Position implements geo.Located.
func (h Hostel) Position() geo.Point { return h.Coordinates }

// PrimaryImage returns the image flagged primary, else the first image.
func (h Hostel) PrimaryImage() (Image, bool) {
	for _, img := range h.Images {
		if img.IsPrimary {
			return img, true
		}
	}
	if len(h.Images) > 0 {
		return h.Images[0], true
	}
	return Image{}, false
}

// HasAnyAmenity reports whether h offers at least one of want.
func (h Hostel) HasAnyAmenity(want []filter.Amenity) bool {
	for _, a := range h.Amenities {
		for _, w := range want {
			if a == w {
				return true
			}
		}
	}
	return false
}

// WithFavoriteDelta returns h with its favorite counter moved by delta, floored at zero.
func (h Hostel) WithFavoriteDelta(delta int) Hostel {
	h.FavoriteCount = max(0, h.FavoriteCount+delta)
	return h
}

// Page is one fetched batch of hostels in store order.
type Page struct {
	Hostels []Hostel
	// Cursor is the store's opaque position after the last document of this
	// page. It stays valid if that document is later changed or deleted.
	Cursor string
	// HasMore is false once the store returned fewer documents than requested.
	HasMore bool
}
