package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

// Signup and password reset attempts allowed per email: a burst, then one
// per interval.
const (
	signupBurst    = 3
	signupInterval = time.Minute
)

// authClient is the subset of *auth.Client used here.
type authClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, u *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

// resetSender asks the provider to email a password reset link.
type resetSender interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// profileStore writes user profile documents.
type profileStore interface {
	Set(ctx context.Context, collection, id string, fields map[string]any) error
}

// Auth verifies identities and creates accounts.
type Auth struct {
	client   authClient
	profiles profileStore
	reset    resetSender
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// AuthOption configures an Auth.
type AuthOption func(*Auth)

// WithPasswordReset enables password reset emails.
func WithPasswordReset(m *ResetMailer) AuthOption {
	return func(a *Auth) { a.reset = m }
}

// NewAuth creates an Auth over a Firebase auth client.
func NewAuth(client *auth.Client, profiles profileStore, opts ...AuthOption) *Auth {
	return newAuth(client, profiles, opts...)
}

func newAuth(client authClient, profiles profileStore, opts ...AuthOption) *Auth {
	a := &Auth{client: client, profiles: profiles, now: time.Now, limiters: map[string]*rate.Limiter{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Verify checks an ID token and returns its identity. The role comes from
// the "role" custom claim.
func (a *Auth) Verify(ctx context.Context, idToken string) (domauth.Identity, error) {
	tok, err := a.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return domauth.Identity{}, classify(err)
	}
	claim := func(k string) string {
		s, _ := tok.Claims[k].(string)
		return s
	}
	return domauth.Identity{
		UID:     tok.UID,
		Email:   claim("email"),
		Name:    claim("name"),
		Picture: claim("picture"),
		Role:    domauth.ParseRole(tok.Claims["role"]),
	}, nil
}

// SignUp validates s, creates the account, stamps a manager role claim if
// one was asked for and writes the profile document. A failure after the
// account exists removes it again.
func (a *Auth) SignUp(ctx context.Context, s domauth.SignUp) (user.Profile, error) {
	if err := s.Validate(); err != nil {
		return user.Profile{}, fmt.Errorf("validate signup: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if !a.allow(email) {
		return user.Profile{}, domauth.NewError(domauth.CodeTooManyRequests, nil)
	}

	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(false).
		Password(s.Password).
		DisplayName(strings.TrimSpace(s.Name)).
		Disabled(false)
	rec, err := a.client.CreateUser(ctx, params)
	if err != nil {
		return user.Profile{}, classify(err)
	}

	p := user.Profile{
		UID:       rec.UID,
		Email:     email,
		Name:      strings.TrimSpace(s.Name),
		Role:      s.RequestedRole(),
		CreatedAt: a.now(),
	}
	if p.Role != domauth.RoleUser {
		if err := a.client.SetCustomUserClaims(ctx, p.UID, roleClaims(p.Role)); err != nil {
			a.removeAccount(ctx, p.UID, "set role claim failed", err)
			return user.Profile{}, fmt.Errorf("set role of %s: %w: %w", p.UID, domain.ErrMutationFailed, err)
		}
	}
	if err := a.profiles.Set(ctx, user.Collection, p.UID, p.Fields()); err != nil {
		a.removeAccount(ctx, p.UID, "write profile failed", err)
		return user.Profile{}, fmt.Errorf("create profile %s: %w: %w", p.UID, domain.ErrMutationFailed, err)
	}
	return p, nil
}

func (a *Auth) removeAccount(ctx context.Context, uid, msg string, cause error) {
	log := logger.FromContext(ctx)
	log.Error(msg, zap.String("uid", uid), zap.Error(cause))
	if err := a.client.DeleteUser(context.WithoutCancel(ctx), uid); err != nil {
		log.Error("remove orphaned account failed", zap.String("uid", uid), zap.Error(err))
	}
}

// SetRoleClaim replaces uid's role claim. RoleUser clears it.
func (a *Auth) SetRoleClaim(ctx context.Context, uid string, role domauth.Role) error {
	if err := a.client.SetCustomUserClaims(ctx, uid, roleClaims(role)); err != nil {
		if auth.IsUserNotFound(err) {
			return fmt.Errorf("account %s: %w", uid, domain.ErrNotFound)
		}
		return fmt.Errorf("set role claim of %s: %w: %w", uid, domain.ErrMutationFailed, err)
	}
	return nil
}

func roleClaims(role domauth.Role) map[string]interface{} {
	if role == domauth.RoleUser {
		return nil
	}
	return map[string]interface{}{"role": string(role)}
}

// PasswordReset emails a reset link to the address. Unknown addresses
// succeed silently so accounts cannot be probed.
func (a *Auth) PasswordReset(ctx context.Context, req domauth.PasswordReset) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validate password reset: %w", err)
	}
	if a.reset == nil {
		return fmt.Errorf("password reset: %w", domain.ErrNotImplemented)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !a.allow("reset:" + email) {
		return domauth.NewError(domauth.CodeTooManyRequests, nil)
	}
	return a.reset.SendPasswordReset(ctx, email)
}

func (a *Auth) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(signupInterval), signupBurst)
		a.limiters[key] = l
	}
	return l.AllowN(a.now(), 1)
}

// Sweep drops limiters whose budget has fully refilled; a fresh limiter
// behaves the same. It returns the number dropped.
func (a *Auth) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	n := 0
	for key, l := range a.limiters {
		if l.TokensAt(now) >= signupBurst {
			delete(a.limiters, key)
			n++
		}
	}
	return n
}

// Schedule registers Sweep on cr with a cron spec such as "@every 1m".
func (a *Auth) Schedule(cr *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := cr.AddFunc(spec, func() { a.Sweep() })
	if err != nil {
		return 0, fmt.Errorf("schedule limiter sweep %q: %w", spec, err)
	}
	return id, nil
}

// classify maps admin SDK errors onto provider codes. The raw error stays
// reachable through Unwrap but never reaches the client.
func classify(err error) error {
	var code domauth.Code
	switch {
	case auth.IsEmailAlreadyExists(err):
		code = domauth.CodeEmailAlreadyInUse
	case auth.IsIDTokenExpired(err):
		code = domauth.CodeIDTokenExpired
	case auth.IsIDTokenRevoked(err):
		code = domauth.CodeIDTokenRevoked
	case auth.IsUserDisabled(err):
		code = domauth.CodeUserDisabled
	case auth.IsUserNotFound(err):
		code = domauth.CodeUserNotFound
	case auth.IsIDTokenInvalid(err):
		code = domauth.CodeInvalidCredentials
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("auth provider: %w: %w", domain.ErrFetchUnavailable, err)
	default:
		code = "auth/internal-error"
	}
	return domauth.NewError(code, err)
}
