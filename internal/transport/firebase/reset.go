package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v1"
	"google.golang.org/api/option"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
)

const resetTimeout = 10 * time.Second

// ResetMailer has the identity provider email password reset links through
// accounts:sendOobCode, authenticated with the project's web API key. The
// admin SDK only generates links.
type ResetMailer struct {
	accounts *identitytoolkit.AccountsService
	// continueURL is where the reset page sends the user afterwards. Optional.
	continueURL string
}

// ResetConfig holds the password reset settings. Endpoint overrides the
// Identity Toolkit base URL.
type ResetConfig struct {
	APIKey      string
	Endpoint    string
	ContinueURL string
}

// NewResetMailer creates a ResetMailer. APIKey is required.
func NewResetMailer(ctx context.Context, cfg ResetConfig, opts ...option.ClientOption) (*ResetMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("password reset: web api key is required: %w", domain.ErrInvalidInput)
	}
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit client: %w", err)
	}
	return &ResetMailer{accounts: svc.Accounts, continueURL: cfg.ContinueURL}, nil
}

// SendPasswordReset asks the provider to email email a reset link.
func (m *ResetMailer) SendPasswordReset(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	_, err := m.accounts.SendOobCode(&identitytoolkit.GoogleCloudIdentitytoolkitV1GetOobCodeRequest{
		RequestType: "PASSWORD_RESET",
		Email:       email,
		ContinueUrl: m.continueURL,
	}).Context(ctx).Do()
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// The request URL carries the API key; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("send password reset: %w: %w", domain.ErrFetchUnavailable, err)
	}
	if gerr.Code >= 500 {
		return fmt.Errorf("send password reset: status %d: %w", gerr.Code, domain.ErrFetchUnavailable)
	}

	// Messages look like "TOO_MANY_ATTEMPTS_TRY_LATER : details".
	code, _, _ := strings.Cut(gerr.Message, " ")
	switch code {
	case "EMAIL_NOT_FOUND":
		return nil
	case "INVALID_EMAIL":
		return domauth.NewError(domauth.CodeInvalidEmail, errors.New(gerr.Message))
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "RESET_PASSWORD_EXCEED_LIMIT":
		return domauth.NewError(domauth.CodeTooManyRequests, errors.New(gerr.Message))
	default:
		return fmt.Errorf("send password reset: %s: %w", gerr.Message, domain.ErrMutationFailed)
	}
}
