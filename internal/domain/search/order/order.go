package order

// Option is a hostel list sort option.
type Option string

// Sort option constants.
const (
	// RatingDesc sorts by average rating, best first. It is the default.
	RatingDesc Option = "rating-desc"
	PriceAsc   Option = "price-asc"
	PriceDesc  Option = "price-desc"
	Newest     Option = "newest"
	// Popularity sorts by detail-page views.
	Popularity Option = "popularity"
)

// Default is the sort applied when none is selected.
const Default = RatingDesc

// IsValid checks if the option is one of the supported values.
func (o Option) IsValid() bool {
	switch o {
	case RatingDesc, PriceAsc, PriceDesc, Newest, Popularity:
		return true
	}
	return false
}

// OrDefault returns o, or Default when o is empty.
func (o Option) OrDefault() Option {
	if o == "" {
		return Default
	}
	return o
}

// Field returns the record field the option orders by and whether the order is descending.
// Unknown options fall back to Default.
func (o Option) Field() (field string, desc bool) {
	switch o {
	case PriceAsc:
		return "priceRange.min", false
	case PriceDesc:
		return "priceRange.max", true
	case Newest:
		return "createdAt", true
	case Popularity:
		return "views", true
	default:
		return "averageRating", true
	}
}
