package domain

import (
	"errors"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput signals rejected client input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated signals a missing or rejected identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden signals an identity without the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrFetchUnavailable signals a network failure or timeout while reading from the store.
	ErrFetchUnavailable = errors.New("store unavailable")
	// ErrFetchRejected signals the store refused a read.
	ErrFetchRejected = errors.New("store rejected the query")
	// ErrMutationFailed signals a write that did not commit.
	ErrMutationFailed = errors.New("mutation failed")
	// ErrMalformedRecord signals a stored document that does not fit its record shape.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMediaRejected signals an upload the media CDN refused.
	ErrMediaRejected = errors.New("media rejected")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// Kind is the closed set of error categories exposed past a boundary.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindFetch       Kind = "fetch"
	KindMutation    Kind = "mutation"
	KindGeolocation Kind = "geolocation"
	KindInternal    Kind = "internal"
)

// Retryable reports whether the caller may retry an operation that failed with this kind.
func (k Kind) Retryable() bool {
	return k == KindFetch || k == KindMutation || k == KindGeolocation
}

// KindError attaches a Kind to an error.
// Boundaries that produce their own error types implement Kind() to join the set.
type KindError interface {
	error
	Kind() Kind
}

// KindOf classifies err into the closed kind set. nil maps to "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke KindError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrUnauthenticated):
		return KindAuth
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrFetchUnavailable), errors.Is(err, ErrFetchRejected):
		return KindFetch
	case errors.Is(err, ErrMutationFailed), errors.Is(err, ErrMediaRejected):
		return KindMutation
	default:
		return KindInternal
	}
}
