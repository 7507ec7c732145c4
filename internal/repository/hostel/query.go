package hostel

import (
	"github.com/ucc-hostels/hostelfinder/internal/db"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
)

// Clauses compiles f into store predicates. Absent fields emit no clause and
// the emission order is fixed, so equal filters compile to equal lists.
//
// Price is a range-overlap test: a hostel matches when some price in its
// range falls within the filter's budget.
func Clauses(f filter.Filter) []db.Clause {
	var out []db.Clause
	add := func(field string, op db.Op, v any) {
		out = append(out, db.Clause{Field: field, Op: op, Value: v})
	}

	if g := f.Gender(); g != filter.Any && g != "" {
		add(domhostel.FieldGender, db.OpEq, string(g))
	}
	if locs := f.Locations(); len(locs) > 0 {
		add(domhostel.FieldLocation, db.OpIn, db.Values(locs))
	}
	if f.VerifiedOnly() {
		add(domhostel.FieldVerified, db.OpEq, true)
	}
	if f.FeaturedOnly() {
		add(domhostel.FieldFeatured, db.OpEq, true)
	}
	if lo, ok := f.PriceMin(); ok {
		add(domhostel.FieldPriceMax, db.OpGTE, int64(lo))
	}
	if hi, ok := f.PriceMax(); ok {
		add(domhostel.FieldPriceMin, db.OpLTE, int64(hi))
	}
	if as := f.Amenities(); len(as) > 0 {
		tags := make([]any, len(as))
		for i, a := range as {
			tags[i] = string(a)
		}
		add(domhostel.FieldAmenities, db.OpArrayContainsAny, tags)
	}
	if r := f.MinRating(); r > 0 {
		add(domhostel.FieldAverageRating, db.OpGTE, r)
	}
	return out
}

// BuildQuery compiles one page request. An empty cursor means the first page.
// Ties under the ordering follow the store's document order and are not stable
// across stores.
func BuildQuery(f filter.Filter, sort order.Option, pageSize int, cursor string) (db.Query, error) {
	field, desc := sort.OrDefault().Field()
	b := db.NewQuery(domhostel.Collection)
	for _, c := range Clauses(f) {
		b.Where(c.Field, c.Op, c.Value)
	}
	return b.OrderBy(field, desc).Limit(pageSize).StartAfter(cursor).Build()
}
