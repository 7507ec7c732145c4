package db

import (
	"errors"
	"fmt"
	"strings"
)

// MaxListOperands is the largest operand list accepted by In and ArrayContainsAny.
const MaxListOperands = 30

// Op is a query predicate operator.
type Op string

// Supported operators.
const (
	OpEq               Op = "=="
	OpGTE              Op = ">="
	OpLTE              Op = "<="
	OpIn               Op = "in"
	OpArrayContains    Op = "array-contains"
	OpArrayContainsAny Op = "array-contains-any"
)

func (o Op) isList() bool { return o == OpIn || o == OpArrayContainsAny }

// IsValid checks if the operator is supported.
func (o Op) IsValid() bool {
	switch o {
	case OpEq, OpGTE, OpLTE, OpIn, OpArrayContains, OpArrayContainsAny:
		return true
	}
	return false
}

// Clause is one predicate on a dotted field path.
type Clause struct {
	Field string
	Op    Op
	Value any
}

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Ordering is the single sort applied to a query.
type Ordering struct {
	Field string
	Desc  bool
}

// Query is a compiled collection query.
type Query struct {
	Collection string
	Clauses    []Clause
	Order      Ordering
	Limit      int
	// StartAfter is the boundary of the previous page.
	StartAfter *Cursor
}

// Validate checks the query for correctness.
func (q *Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	if q.StartAfter != nil {
		if q.Order.Field == "" {
			return fmt.Errorf("%w: cursor requires an ordering", ErrInvalidQuery)
		}
		if q.StartAfter.Field != q.Order.Field {
			return fmt.Errorf("%w: cursor on %q does not match ordering %q",
				ErrInvalidQuery, q.StartAfter.Field, q.Order.Field)
		}
	}
	var errs []error
	for i, c := range q.Clauses {
		if c.Field == "" {
			errs = append(errs, fmt.Errorf("clause %d: field is required", i))
		}
		if !c.Op.IsValid() {
			errs = append(errs, fmt.Errorf("clause %d: unsupported operator %q", i, c.Op))
		}
		if c.Op.isList() {
			list, ok := c.Value.([]any)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("clause %d: %s needs a list operand", i, c.Op))
			case len(list) == 0 || len(list) > MaxListOperands:
				errs = append(errs, fmt.Errorf("clause %d: %s needs 1-%d operands", i, c.Op, MaxListOperands))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(errs...))
	}
	return nil
}

// String renders the query for logs.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for i, c := range q.Clauses {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	if q.Order.Field != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.Order.Field)
		if q.Order.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.StartAfter != nil {
		fmt.Fprintf(&b, " AFTER %s", q.StartAfter)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// QueryResult holds the documents of one query in store order.
type QueryResult struct {
	Docs []Document
	// Next is the cursor token after the last returned document, empty when
	// none were returned.
	Next string
}

// QueryBuilder is a fluent builder for queries.
type QueryBuilder struct {
	q   Query
	err error
}

// NewQuery starts building a query over collection.
func NewQuery(collection string) *QueryBuilder {
	return &QueryBuilder{q: Query{Collection: collection}}
}

// Where adds a clause.
func (b *QueryBuilder) Where(field string, op Op, value any) *QueryBuilder {
	b.q.Clauses = append(b.q.Clauses, Clause{Field: field, Op: op, Value: value})
	return b
}

// OrderBy sets the ordering, replacing any earlier one.
func (b *QueryBuilder) OrderBy(field string, desc bool) *QueryBuilder {
	b.q.Order = Ordering{Field: field, Desc: desc}
	return b
}

// Limit sets the page size. 0 means unlimited.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.q.Limit = n
	return b
}

// StartAfter continues after a token from QueryResult.Next. An empty token
// means the first page; a malformed one fails Build.
func (b *QueryBuilder) StartAfter(token string) *QueryBuilder {
	if token == "" {
		b.q.StartAfter, b.err = nil, nil
		return b
	}
	c, err := DecodeCursor(token)
	if err != nil {
		b.err = err
		return b
	}
	return b.After(c)
}

// After continues after c.
func (b *QueryBuilder) After(c Cursor) *QueryBuilder {
	b.q.StartAfter, b.err = &c, nil
	return b
}

// Build validates and returns the query.
func (b *QueryBuilder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	q := b.q
	q.Clauses = append([]Clause(nil), b.q.Clauses...)
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// MustBuild builds the query or panics. Use only with static input.
func (b *QueryBuilder) MustBuild() Query {
	q, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q
}

// Values converts a typed slice into a list operand.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
