package geo

import (
	"fmt"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// Permission is the persisted device location permission state.
type Permission string

// Permission states.
const (
	PermissionUnknown Permission = ""
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// IsValid checks if the permission is a known state.
func (p Permission) IsValid() bool {
	return p == PermissionUnknown || p == PermissionGranted || p == PermissionDenied
}

// LocationErrorCode distinguishes device geolocation failures.
type LocationErrorCode string

// Geolocation failure codes, numbered 1-3 by browsers.
const (
	PermissionDeniedCode    LocationErrorCode = "permission-denied"
	PositionUnavailableCode LocationErrorCode = "position-unavailable"
	TimeoutCode             LocationErrorCode = "timeout"
)

// LocationError is a classified geolocation failure reported by a client.
type LocationError struct {
	Code LocationErrorCode
}

// ParseLocationError maps the browser's numeric code to a LocationError.
func ParseLocationError(code int) (*LocationError, error) {
	switch code {
	case 1:
		return &LocationError{Code: PermissionDeniedCode}, nil
	case 2:
		return &LocationError{Code: PositionUnavailableCode}, nil
	case 3:
		return &LocationError{Code: TimeoutCode}, nil
	default:
		return nil, fmt.Errorf("unknown geolocation error code %d: %w", code, domain.ErrInvalidInput)
	}
}

func (e *LocationError) Error() string {
	switch e.Code {
	case PermissionDeniedCode:
		return "Location permission denied"
	case PositionUnavailableCode:
		return "Location unavailable"
	default:
		return "Location request timed out"
	}
}

// Kind implements domain.KindError.
func (e *LocationError) Kind() domain.Kind { return domain.KindGeolocation }

// Retryable reports whether asking again may succeed. Denial is not retryable.
func (e *LocationError) Retryable() bool { return e.Code != PermissionDeniedCode }

// Permission returns the permission state the failure implies, if any.
func (e *LocationError) Permission() (Permission, bool) {
	if e.Code == PermissionDeniedCode {
		return PermissionDenied, true
	}
	return PermissionUnknown, false
}
