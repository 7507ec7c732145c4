package db

import (
	"context"
	"errors"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound  = errors.New("db: key not found")
	ErrKeyExists    = errors.New("db: key already exists")
	ErrUnavailable  = errors.New("db: unavailable")
	ErrInvalidQuery = errors.New("db: invalid query")
	ErrAborted      = errors.New("db: transaction aborted")
)

// Op names for error context.
const (
	OpGet         = "GET"
	OpQuery       = "QUERY"
	OpCreate      = "CREATE"
	OpSet         = "SET"
	OpUpdate      = "UPDATE"
	OpDel         = "DEL"
	OpTransaction = "TRANSACTION"
	OpWatch       = "WATCH"
	OpPing        = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a network failure or timeout worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrAborted)
}
