package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodeUserNotFound, "No account found with this email"},
		{CodeWrongPassword, "Incorrect password"},
		{CodeEmailAlreadyInUse, "Email already registered"},
		{CodeWeakPassword, "Password should be at least 6 characters"},
		{CodeInvalidEmail, "Please enter a valid email address"},
		{CodeTooManyRequests, "Too many attempts. Please try again later"},
		{"auth/network-request-failed", GenericMessage},
		{"", GenericMessage},
	}
	for _, tt := range tests {
		if got := Message(tt.code); got != tt.want {
			t.Errorf("Message(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_HidesRawCause(t *testing.T) {
	cause := errors.New("firebase: auth/user-not-found: no user record")
	err := NewError(CodeUserNotFound, cause)

	if err.Error() != "No account found with this email" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause must stay reachable for logging")
	}
	if domain.KindOf(err) != domain.KindAuth {
		t.Errorf("kind = %q", domain.KindOf(err))
	}
	if domain.KindOf(NewError(CodeEmailAlreadyInUse, nil)) != domain.KindConflict {
		t.Error("duplicate email should be a conflict")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   any
		want Role
	}{
		{"admin", RoleAdmin},
		{"manager", RoleManager},
		{"user", RoleUser},
		{"root", RoleUser},
		{nil, RoleUser},
		{42, RoleUser},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	if _, err := Require(ctx, RoleUser); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("anonymous: %v", err)
	}

	ctx = ContextWithIdentity(ctx, Identity{UID: "u1", Role: RoleManager})
	if _, err := Require(ctx, RoleManager); err != nil {
		t.Errorf("manager as manager: %v", err)
	}
	if _, err := Require(ctx, RoleAdmin); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("manager as admin: %v", err)
	}
	if !RoleAdmin.AtLeast(RoleManager) || RoleUser.AtLeast(RoleManager) {
		t.Error("AtLeast mismatch")
	}
}

func TestSignUp_Validate(t *testing.T) {
	if err := (SignUp{Email: "ama@stu.ucc.edu.gh", Password: "secret", Name: "Ama"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := SignUp{Email: "Ama <ama@x>", Password: "12345", Name: " "}.Validate()
	var ve *validation.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
	if ve.Fields["email"] != Message(CodeInvalidEmail) || ve.Fields["password"] != Message(CodeWeakPassword) {
		t.Errorf("fields = %v", ve.Fields)
	}
	if _, ok := ve.Fields["name"]; !ok {
		t.Error("expected name error")
	}
}

func TestSignUp_Role(t *testing.T) {
	base := SignUp{Email: "kofi@ucc.edu.gh", Password: "secret", Name: "Kofi"}

	mgr := base
	mgr.Role = RoleManager
	if err := mgr.Validate(); err != nil || mgr.RequestedRole() != RoleManager {
		t.Errorf("manager signup: role %q, err %v", mgr.RequestedRole(), err)
	}
	if base.RequestedRole() != RoleUser {
		t.Errorf("default role = %q", base.RequestedRole())
	}

	adm := base
	adm.Role = RoleAdmin
	var ve *validation.Error
	if err := adm.Validate(); !errors.As(err, &ve) || ve.Fields["role"] == "" {
		t.Errorf("admin signup must be rejected, got %v", err)
	}
}

func TestPasswordReset_Validate(t *testing.T) {
	if err := (PasswordReset{Email: "ama@ucc.edu.gh"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (PasswordReset{Email: "ama"}).Validate(); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
