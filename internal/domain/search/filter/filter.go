package filter

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// MaxValuesPerSet is the largest location or amenity set a filter accepts.
// It matches the store's limit on "in" and "array-contains-any" operands.
const MaxValuesPerSet = 30

// MaxRating is the top of the rating scale.
const MaxRating = 5

// Default price band applied on first load.
const (
	DefaultPriceMin = 0
	DefaultPriceMax = 2000
)

// Params is the serialisable draft of a filter.
// Nil or zero fields mean "no constraint".
type Params struct {
	Locations    []string  `json:"locations,omitempty"`
	Gender       Gender    `json:"gender,omitempty"`
	PriceMin     *int      `json:"priceMin,omitempty"`
	PriceMax     *int      `json:"priceMax,omitempty"`
	Amenities    []Amenity `json:"amenities,omitempty"`
	MinRating    float64   `json:"minRating,omitempty"`
	VerifiedOnly bool      `json:"verifiedOnly,omitempty"`
	FeaturedOnly bool      `json:"featuredOnly,omitempty"`
}

// Filter is a validated, canonical search intent. It is immutable: callers
// replace a filter wholesale instead of editing it.
type Filter struct {
	locations    []string
	gender       Gender
	priceMin     *int
	priceMax     *int
	amenities    []Amenity
	minRating    float64
	verifiedOnly bool
	featuredOnly bool
}

// New validates p and builds its canonical Filter.
// Locations are trimmed, deduplicated and sorted; amenities are deduplicated
// and sorted; gender "all" and non-positive price bounds are dropped.
func New(p Params) (Filter, error) {
	errs := validation.Errors{}

	locations := make([]string, 0, len(p.Locations))
	for _, l := range p.Locations {
		if l = strings.TrimSpace(l); l != "" {
			locations = append(locations, l)
		}
	}
	slices.Sort(locations)
	locations = slices.Compact(locations)
	errs.Check("locations", len(locations) <= MaxValuesPerSet,
		fmt.Sprintf("at most %d locations", MaxValuesPerSet))

	errs.Check("gender", p.Gender.IsValid(), fmt.Sprintf("unknown gender %q", p.Gender))
	gender := p.Gender
	if gender == Any {
		gender = ""
	}

	amenities := slices.Clone(p.Amenities)
	slices.Sort(amenities)
	amenities = slices.Compact(amenities)
	errs.Check("amenities", len(amenities) <= MaxValuesPerSet,
		fmt.Sprintf("at most %d amenities", MaxValuesPerSet))
	for _, a := range amenities {
		if !a.IsValid() {
			errs.Add("amenities", fmt.Sprintf("unknown amenity %q", a))
		}
	}

	if p.PriceMin != nil && *p.PriceMin < 0 {
		errs.Add("priceMin", "must not be negative")
	}
	if p.PriceMax != nil && *p.PriceMax < 0 {
		errs.Add("priceMax", "must not be negative")
	}
	priceMin, priceMax := positive(p.PriceMin), positive(p.PriceMax)
	if priceMin != nil && priceMax != nil && *priceMin > *priceMax {
		errs.Add("priceMin", "must not exceed priceMax")
	}

	if math.IsNaN(p.MinRating) || p.MinRating < 0 || p.MinRating > MaxRating {
		errs.Add("minRating", fmt.Sprintf("must be between 0 and %d", MaxRating))
	}

	if err := errs.Err(); err != nil {
		return Filter{}, err
	}
	if len(locations) == 0 {
		locations = nil
	}
	if len(amenities) == 0 {
		amenities = nil
	}
	return Filter{
		locations:    locations,
		gender:       gender,
		priceMin:     priceMin,
		priceMax:     priceMax,
		amenities:    amenities,
		minRating:    p.MinRating,
		verifiedOnly: p.VerifiedOnly,
		featuredOnly: p.FeaturedOnly,
	}, nil
}

// MustNew is New for statically known params. It panics on invalid input.
func MustNew(p Params) Filter {
	f, err := New(p)
	if err != nil {
		panic(err)
	}
	return f
}

// Defaults returns the filter applied before the user sets any preference.
func Defaults() Filter {
	return MustNew(DefaultParams())
}

// DefaultParams returns the draft form of Defaults.
func DefaultParams() Params {
	lo, hi := DefaultPriceMin, DefaultPriceMax
	return Params{Gender: Any, PriceMin: &lo, PriceMax: &hi}
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

// Locations returns the location set, sorted.
func (f Filter) Locations() []string { return slices.Clone(f.locations) }

// Gender returns the gender constraint, empty for none.
func (f Filter) Gender() Gender { return f.gender }

// PriceMin returns the lower price bound if set.
func (f Filter) PriceMin() (int, bool) { return deref(f.priceMin) }

// PriceMax returns the upper price bound if set.
func (f Filter) PriceMax() (int, bool) { return deref(f.priceMax) }

// Amenities returns the amenity set, sorted.
func (f Filter) Amenities() []Amenity { return slices.Clone(f.amenities) }

// MinRating returns the rating floor, 0 for none.
func (f Filter) MinRating() float64 { return f.minRating }

// VerifiedOnly reports whether only verified hostels match.
func (f Filter) VerifiedOnly() bool { return f.verifiedOnly }

// FeaturedOnly reports whether only featured hostels match.
func (f Filter) FeaturedOnly() bool { return f.featuredOnly }

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.locations) == 0 && f.gender == "" && f.priceMin == nil && f.priceMax == nil &&
		len(f.amenities) == 0 && f.minRating == 0 && !f.verifiedOnly && !f.featuredOnly
}

// Params returns the canonical draft of f. New(f.Params()) equals f.
func (f Filter) Params() Params {
	p := Params{
		Locations:    f.Locations(),
		Gender:       f.gender,
		Amenities:    f.Amenities(),
		MinRating:    f.minRating,
		VerifiedOnly: f.verifiedOnly,
		FeaturedOnly: f.featuredOnly,
	}
	if v, ok := f.PriceMin(); ok {
		p.PriceMin = &v
	}
	if v, ok := f.PriceMax(); ok {
		p.PriceMax = &v
	}
	return p
}

func deref(v *int) (int, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
