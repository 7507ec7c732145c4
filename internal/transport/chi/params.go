package chi

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
)

// ListHostelsParams are the query parameters of GET /hostels.
// Sets use the exploded form style: ?locations=A&locations=B.
type ListHostelsParams struct {
	Locations *[]string
	Gender    *string
	PriceMin  *int
	PriceMax  *int
	Amenities *[]string
	MinRating *float64
	Verified  *bool
	Featured  *bool
	Sort      *string
}

func bindListHostelsParams(q url.Values) (ListHostelsParams, error) {
	var p ListHostelsParams
	binds := []struct {
		name string
		dest any
	}{
		{"locations", &p.Locations},
		{"gender", &p.Gender},
		{"priceMin", &p.PriceMin},
		{"priceMax", &p.PriceMax},
		{"amenities", &p.Amenities},
		{"minRating", &p.MinRating},
		{"verified", &p.Verified},
		{"featured", &p.Featured},
		{"sort", &p.Sort},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return ListHostelsParams{}, fmt.Errorf("invalid format for parameter %s: %w: %w", b.name, domain.ErrInvalidInput, err)
		}
	}
	return p, nil
}

// hasFilter reports whether any filter parameter was sent.
func (p ListHostelsParams) hasFilter() bool {
	return p.Locations != nil || p.Gender != nil || p.PriceMin != nil || p.PriceMax != nil ||
		p.Amenities != nil || p.MinRating != nil || p.Verified != nil || p.Featured != nil
}

// filterParams converts the bound parameters into a filter draft.
func (p ListHostelsParams) filterParams() filter.Params {
	fp := filter.Params{
		PriceMin: p.PriceMin,
		PriceMax: p.PriceMax,
	}
	if p.Locations != nil {
		fp.Locations = *p.Locations
	}
	if p.Gender != nil {
		fp.Gender = filter.Gender(*p.Gender)
	}
	if p.Amenities != nil {
		for _, a := range *p.Amenities {
			fp.Amenities = append(fp.Amenities, filter.Amenity(a))
		}
	}
	if p.MinRating != nil {
		fp.MinRating = *p.MinRating
	}
	if p.Verified != nil {
		fp.VerifiedOnly = *p.Verified
	}
	if p.Featured != nil {
		fp.FeaturedOnly = *p.Featured
	}
	return fp
}

// sortOption returns the requested sort, or "" when none was sent.
func (p ListHostelsParams) sortOption() (order.Option, error) {
	if p.Sort == nil || *p.Sort == "" {
		return "", nil
	}
	o := order.Option(*p.Sort)
	if !o.IsValid() {
		return "", fmt.Errorf("sort %q: %w", *p.Sort, domain.ErrInvalidInput)
	}
	return o, nil
}

// NearbyParams are the query parameters of GET /search/nearby.
type NearbyParams struct {
	Lat      float64
	Lng      float64
	RadiusKm *float64
}

func bindNearbyParams(q url.Values) (NearbyParams, error) {
	var p NearbyParams
	if err := runtime.BindQueryParameter("form", true, true, "lat", q, &p.Lat); err != nil {
		return NearbyParams{}, fmt.Errorf("invalid format for parameter lat: %w: %w", domain.ErrInvalidInput, err)
	}
	if err := runtime.BindQueryParameter("form", true, true, "lng", q, &p.Lng); err != nil {
		return NearbyParams{}, fmt.Errorf("invalid format for parameter lng: %w: %w", domain.ErrInvalidInput, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "radiusKm", q, &p.RadiusKm); err != nil {
		return NearbyParams{}, fmt.Errorf("invalid format for parameter radiusKm: %w: %w", domain.ErrInvalidInput, err)
	}
	return p, nil
}

func bindBounds(q url.Values) (geo.Bounds, error) {
	var b geo.Bounds
	binds := []struct {
		name string
		dest *float64
	}{
		{"north", &b.North},
		{"south", &b.South},
		{"east", &b.East},
		{"west", &b.West},
	}
	for _, p := range binds {
		if err := runtime.BindQueryParameter("form", true, true, p.name, q, p.dest); err != nil {
			return geo.Bounds{}, fmt.Errorf("invalid format for parameter %s: %w: %w", p.name, domain.ErrInvalidInput, err)
		}
	}
	return b, nil
}

func bindOptionalString(q url.Values, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, q, &v); err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w: %w", name, domain.ErrInvalidInput, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}
