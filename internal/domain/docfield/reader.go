// Package docfield coerces untyped store documents into typed values.
//
// A Reader walks one document and collects every problem it meets, so a
// malformed record is reported once with all offending fields.
package docfield

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// Reader reads typed fields from a document map.
type Reader struct {
	prefix string
	fields map[string]any
	errs   *[]string
}

// NewReader wraps fields.
func NewReader(fields map[string]any) *Reader {
	return &Reader{fields: fields, errs: new([]string)}
}

// Err returns a domain.ErrMalformedRecord-wrapping error listing every bad field, or nil.
func (r *Reader) Err() error {
	if len(*r.errs) == 0 {
		return nil
	}
	msgs := append([]string(nil), *r.errs...)
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", domain.ErrMalformedRecord, strings.Join(msgs, "; "))
}

func (r *Reader) fail(key, format string, args ...any) {
	*r.errs = append(*r.errs, r.prefix+key+": "+fmt.Sprintf(format, args...))
}

// Has reports whether key is present and non-nil.
func (r *Reader) Has(key string) bool {
	v, ok := r.fields[key]
	return ok && v != nil
}

// String reads a required string.
func (r *Reader) String(key string) string {
	v, ok := r.fields[key]
	if !ok || v == nil {
		r.fail(key, "required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "want string, got %T", v)
	}
	return s
}

// OptString reads an optional string.
func (r *Reader) OptString(key string) string {
	if !r.Has(key) {
		return ""
	}
	return r.String(key)
}

// Float reads a required number.
func (r *Reader) Float(key string) float64 {
	v, ok := r.fields[key]
	if !ok || v == nil {
		r.fail(key, "required")
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(key, "want number, got %T", v)
	}
	return f
}

// OptFloat reads an optional number, 0 when absent.
func (r *Reader) OptFloat(key string) float64 {
	if !r.Has(key) {
		return 0
	}
	return r.Float(key)
}

// Int reads a required integral number.
func (r *Reader) Int(key string) int64 {
	f := r.Float(key)
	if f != math.Trunc(f) {
		r.fail(key, "want integer, got %v", f)
	}
	return int64(f)
}

// OptInt reads an optional integral number, 0 when absent.
func (r *Reader) OptInt(key string) int64 {
	if !r.Has(key) {
		return 0
	}
	return r.Int(key)
}

// OptBool reads an optional bool, false when absent.
func (r *Reader) OptBool(key string) bool {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "want bool, got %T", v)
	}
	return b
}

// OptTime reads an optional timestamp. time.Time, RFC 3339 strings and
// epoch milliseconds are accepted.
func (r *Reader) OptTime(key string) time.Time {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
		return time.Time{}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			r.fail(key, "bad timestamp %q", t)
		}
		return parsed
	default:
		if ms, ok := toFloat(v); ok {
			return time.UnixMilli(int64(ms)).UTC()
		}
		r.fail(key, "want timestamp, got %T", v)
		return time.Time{}
	}
}

// OptStrings reads an optional list of strings.
func (r *Reader) OptStrings(key string) []string {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				r.fail(key, "item %d: want string, got %T", i, item)
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		r.fail(key, "want list, got %T", v)
		return nil
	}
}

// Map descends into a required nested object. The returned Reader shares the error list.
func (r *Reader) Map(key string) *Reader {
	v, ok := r.fields[key]
	if !ok || v == nil {
		r.fail(key, "required")
		return r.child(key, nil)
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.fail(key, "want object, got %T", v)
	}
	return r.child(key, m)
}

// OptMap descends into an optional nested object.
func (r *Reader) OptMap(key string) *Reader {
	if !r.Has(key) {
		return r.child(key, nil)
	}
	return r.Map(key)
}

// Maps reads an optional list of objects.
func (r *Reader) Maps(key string) []*Reader {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		r.fail(key, "want list, got %T", v)
		return nil
	}
	out := make([]*Reader, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			r.fail(key, "item %d: want object, got %T", i, item)
			continue
		}
		out = append(out, r.child(fmt.Sprintf("%s[%d]", key, i), m))
	}
	return out
}

// Fail records a domain-level problem with key.
func (r *Reader) Fail(key, msg string) { r.fail(key, "%s", msg) }

func (r *Reader) child(key string, m map[string]any) *Reader {
	return &Reader{prefix: r.prefix + key + ".", fields: m, errs: r.errs}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
