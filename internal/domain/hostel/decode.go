package hostel

import (
	"fmt"

	"github.com/ucc-hostels/hostelfinder/internal/domain/docfield"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
)

// FromDocument coerces a stored hostel document into a Hostel.
// It returns an error wrapping domain.ErrMalformedRecord when the document
// lacks required fields or holds values of the wrong shape.
func FromDocument(id string, fields map[string]any) (Hostel, error) {
	r := docfield.NewReader(fields)

	h := Hostel{
		ID:            id,
		Name:          r.String("name"),
		Description:   r.OptString("description"),
		Location:      r.String("location"),
		Address:       r.OptString("address"),
		Gender:        filter.Gender(r.String("gender")),
		Type:          r.OptString("type"),
		Rooms:         int(r.OptInt("rooms")),
		PaymentPeriod: r.OptString("paymentPeriod"),
		AverageRating: r.OptFloat("averageRating"),
		ReviewCount:   int(r.OptInt("reviewCount")),
		FavoriteCount: int(r.OptInt("favoriteCount")),
		Views:         int(r.OptInt("views")),
		Availability:  r.OptString("availability"),
		Featured:      r.OptBool("featured"),
		Verified:      r.OptBool("verified"),
		OwnerID:       r.OptString("ownerId"),
		CreatedBy:     r.OptString("createdBy"),
		CreatedAt:     r.OptTime("createdAt"),
		UpdatedAt:     r.OptTime("updatedAt"),
	}

	coords := r.Map("coordinates")
	h.Coordinates = geo.Point{Lat: coords.Float("latitude"), Lng: coords.Float("longitude")}
	if !h.Coordinates.Valid() {
		coords.Fail("latitude", "coordinates out of range")
	}

	price := r.Map("priceRange")
	h.Price = PriceRange{
		Min:      int(price.Int("min")),
		Max:      int(price.Int("max")),
		Currency: price.OptString("currency"),
	}
	if h.Price.Currency == "" {
		h.Price.Currency = Currency
	}
	if h.Price.Min < 0 || h.Price.Min > h.Price.Max {
		price.Fail("min", fmt.Sprintf("invalid range [%d, %d]", h.Price.Min, h.Price.Max))
	}

	for _, a := range r.OptStrings("amenities") {
		h.Amenities = append(h.Amenities, filter.Amenity(a))
	}

	contact := r.OptMap("contactInfo")
	h.Contact = Contact{
		Phone:    contact.OptStrings("phone"),
		Email:    contact.OptString("email"),
		WhatsApp: contact.OptString("whatsapp"),
		Website:  contact.OptString("website"),
	}

	for _, img := range r.Maps("images") {
		h.Images = append(h.Images, Image{
			URL:        img.String("url"),
			PublicID:   img.OptString("publicId"),
			Caption:    img.OptString("caption"),
			IsPrimary:  img.OptBool("isPrimary"),
			UploadedAt: img.OptTime("uploadedAt"),
		})
	}

	if !h.Gender.IsRecordValid() && r.Has("gender") {
		r.Fail("gender", fmt.Sprintf("unknown gender %q", h.Gender))
	}
	if h.AverageRating < 0 || h.AverageRating > filter.MaxRating {
		r.Fail("averageRating", "out of range")
	}

	if err := r.Err(); err != nil {
		return Hostel{}, fmt.Errorf("hostel %s: %w", id, err)
	}
	return h, nil
}

// ImageFields is the document shape of img.
func ImageFields(img Image) map[string]any {
	m := map[string]any{
		"url":        img.URL,
		"publicId":   img.PublicID,
		"isPrimary":  img.IsPrimary,
		"uploadedAt": img.UploadedAt,
	}
	if img.Caption != "" {
		m["caption"] = img.Caption
	}
	return m
}

// ImagesValue is the document shape of an image list.
func ImagesValue(images []Image) []any {
	out := make([]any, len(images))
	for i, img := range images {
		out[i] = ImageFields(img)
	}
	return out
}
