// Package validation collects per-field input errors.
package validation

import (
	"sort"
	"strings"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// Errors maps a field name to its current error message.
type Errors map[string]string

// Check records msg for field when ok is false and clears the field when ok is true.
func (e Errors) Check(field string, ok bool, msg string) {
	if ok {
		delete(e, field)
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) { e.Check(field, false, msg) }

// Err returns nil when no field failed, otherwise an *Error.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	fields := make(map[string]string, len(e))
	for k, v := range e {
		fields[k] = v
	}
	return &Error{Fields: fields}
}

// Error is a set of field errors. It unwraps to domain.ErrInvalidInput.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(domain.ErrInvalidInput.Error())
	for i, k := range keys {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

func (e *Error) Unwrap() error { return domain.ErrInvalidInput }

// Kind implements domain.KindError.
func (e *Error) Kind() domain.Kind { return domain.KindValidation }
