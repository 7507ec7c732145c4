package db

import (
	"cmp"
	"reflect"
	"strings"
	"time"
)

// Lookup resolves a dotted path in fields.
func Lookup(fields map[string]any, path string) (any, bool) {
	cur := any(fields)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Match evaluates c against fields with the store's semantics: a missing field
// never matches and values of different types never compare.
func Match(c Clause, fields map[string]any) bool {
	v, ok := Lookup(fields, c.Field)
	if !ok || v == nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return Equal(v, c.Value)
	case OpGTE:
		n, ok := Compare(v, c.Value)
		return ok && n >= 0
	case OpLTE:
		n, ok := Compare(v, c.Value)
		return ok && n <= 0
	case OpIn:
		for _, want := range asList(c.Value) {
			if Equal(v, want) {
				return true
			}
		}
		return false
	case OpArrayContains:
		for _, have := range asList(v) {
			if Equal(have, c.Value) {
				return true
			}
		}
		return false
	case OpArrayContainsAny:
		for _, have := range asList(v) {
			for _, want := range asList(c.Value) {
				if Equal(have, want) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

// MatchAll reports whether every clause matches.
func MatchAll(clauses []Clause, fields map[string]any) bool {
	for _, c := range clauses {
		if !Match(c, fields) {
			return false
		}
	}
	return true
}

// Equal compares two field values, treating all numeric types as one.
func Equal(a, b any) bool {
	n, ok := Compare(a, b)
	if ok {
		return n == 0
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two scalar field values of the same kind.
// ok is false when the values are not comparable.
func Compare(a, b any) (n int, ok bool) {
	if fa, aok := number(a); aok {
		fb, bok := number(b)
		if !bok {
			return 0, false
		}
		return cmp.Compare(fa, fb), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
