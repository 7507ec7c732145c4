// Package auth defines identities, roles and the provider error vocabulary.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// Code is an auth provider error code.
type Code string

// Provider error codes.
const (
	CodeInvalidEmail       Code = "auth/invalid-email"
	CodeWrongPassword      Code = "auth/wrong-password"
	CodeUserNotFound       Code = "auth/user-not-found"
	CodeEmailAlreadyInUse  Code = "auth/email-already-in-use"
	CodeWeakPassword       Code = "auth/weak-password"
	CodeTooManyRequests    Code = "auth/too-many-requests"
	CodeUserDisabled       Code = "auth/user-disabled"
	CodeIDTokenExpired     Code = "auth/id-token-expired"
	CodeIDTokenRevoked     Code = "auth/id-token-revoked"
	CodeInvalidCredentials Code = "auth/invalid-credential"
)

// GenericMessage is shown for codes without a dedicated message.
const GenericMessage = "An error occurred. Please try again"

var messages = map[Code]string{
	CodeUserNotFound:       "No account found with this email",
	CodeWrongPassword:      "Incorrect password",
	CodeEmailAlreadyInUse:  "Email already registered",
	CodeWeakPassword:       "Password should be at least 6 characters",
	CodeInvalidEmail:       "Please enter a valid email address",
	CodeTooManyRequests:    "Too many attempts. Please try again later",
	CodeUserDisabled:       "This account has been disabled",
	CodeIDTokenExpired:     "Your session has expired. Please sign in again",
	CodeIDTokenRevoked:     "Your session has expired. Please sign in again",
	CodeInvalidCredentials: "Invalid email or password",
}

// Message maps a provider code to its user-facing message.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return GenericMessage
}

// Error is a classified auth failure. Error() returns the user-facing message only.
type Error struct {
	Code Code
	Err  error
}

// NewError wraps err with code.
func NewError(code Code, err error) *Error { return &Error{Code: code, Err: err} }

func (e *Error) Error() string { return Message(e.Code) }

func (e *Error) Unwrap() error { return e.Err }

// Kind implements domain.KindError. Duplicate sign-ups are conflicts, the rest are auth failures.
func (e *Error) Kind() domain.Kind {
	if e.Code == CodeEmailAlreadyInUse {
		return domain.KindConflict
	}
	return domain.KindAuth
}

// Role is a user's permission level.
type Role string

// Roles in increasing privilege.
const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a custom claim to a Role. Unknown values are RoleUser.
func ParseRole(v any) Role {
	s, _ := v.(string)
	switch Role(s) {
	case RoleAdmin, RoleManager:
		return Role(s)
	default:
		return RoleUser
	}
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleManager:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleManager || r == RoleAdmin
}

// AtLeast reports whether r grants everything want grants.
func (r Role) AtLeast(want Role) bool { return r.rank() >= want.rank() }

// Identity is an authenticated caller.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
	Role    Role
}

type ctxKey struct{}

// ContextWithIdentity stores id in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the caller identity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Require returns the caller identity if it has at least role.
func Require(ctx context.Context, role Role) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UID == "" {
		return Identity{}, domain.ErrUnauthenticated
	}
	if !id.Role.AtLeast(role) {
		return Identity{}, fmt.Errorf("requires role %s: %w", role, domain.ErrForbidden)
	}
	return id, nil
}

// MinPasswordLength is the shortest password the provider accepts.
const MinPasswordLength = 6

// SignUp is a new-account request. Role may be empty, user or manager;
// admins are only ever promoted by another admin.
type SignUp struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role,omitempty"`
}

// RequestedRole is the role the account is created with.
func (s SignUp) RequestedRole() Role {
	if s.Role == RoleManager {
		return RoleManager
	}
	return RoleUser
}

// Validate checks the request locally before reaching the provider.
func (s SignUp) Validate() error {
	errs := validation.Errors{}
	addr, err := mail.ParseAddress(strings.TrimSpace(s.Email))
	errs.Check("email", err == nil && addr.Address == strings.TrimSpace(s.Email), Message(CodeInvalidEmail))
	errs.Check("password", utf8.RuneCountInString(s.Password) >= MinPasswordLength, Message(CodeWeakPassword))
	errs.Check("name", strings.TrimSpace(s.Name) != "", "Name is required")
	errs.Check("role", s.Role == "" || s.Role == RoleUser || s.Role == RoleManager, "Role must be user or manager")
	return errs.Err()
}

// PasswordReset asks for a password reset email.
type PasswordReset struct {
	Email string `json:"email"`
}

// Validate checks the address locally before reaching the provider.
func (p PasswordReset) Validate() error {
	errs := validation.Errors{}
	addr, err := mail.ParseAddress(strings.TrimSpace(p.Email))
	errs.Check("email", err == nil && addr.Address == strings.TrimSpace(p.Email), Message(CodeInvalidEmail))
	return errs.Err()
}
