package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// tokenQueryParam carries the ID token on websocket upgrades, where browsers cannot set headers.
const tokenQueryParam = "access_token"

// AuthMiddleware resolves the caller identity from a Bearer ID token.
// Requests without a token continue anonymously; handlers that need a user
// reject them. A token that fails verification is rejected with 401.
// A nil verifier enables dev tokens of the form "<uid>" or "<uid>:<role>".
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, present, ok := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "authorization header must use Bearer scheme")
				return
			}

			var (
				id  domauth.Identity
				err error
			)
			if verifier == nil {
				id, err = devIdentity(token)
			} else {
				id, err = verifier.Verify(r.Context(), token)
			}
			if err != nil {
				logger.FromContext(r.Context()).Info("token rejected", zap.Error(err))
				status, body := classify(err)
				if status != http.StatusUnauthorized && status != http.StatusServiceUnavailable {
					status, body = http.StatusUnauthorized, ErrorResponse{
						Code:    CodeUnauthenticated,
						Message: domauth.GenericMessage,
						Kind:    domain.KindAuth,
					}
				}
				writeJSON(w, status, body)
				return
			}

			ctx := domauth.ContextWithIdentity(r.Context(), id)
			ctx = logger.With(ctx, zap.String("uid", id.UID), zap.String("role", string(id.Role)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token. present is false when the request carries none.
func bearerToken(r *http.Request) (token string, present, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if t := r.URL.Query().Get(tokenQueryParam); t != "" && strings.HasPrefix(r.URL.Path, "/ws/") {
			return t, true, true
		}
		return "", false, false
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", true, false
	}
	token = strings.TrimSpace(header[len(bearerPrefix):])
	return token, true, token != ""
}

func devIdentity(token string) (domauth.Identity, error) {
	uid, role, _ := strings.Cut(token, ":")
	if uid == "" {
		return domauth.Identity{}, domain.ErrUnauthenticated
	}
	return domauth.Identity{UID: uid, Role: domauth.ParseRole(role)}, nil
}

// requireUser returns the authenticated caller or writes a 401.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domauth.Identity, bool) {
	id, ok := domauth.FromContext(r.Context())
	if !ok || id.UID == "" {
		s.handleDomainError(w, r, domain.ErrUnauthenticated)
		return domauth.Identity{}, false
	}
	return id, true
}

// callerUID returns the caller's UID, or "" for anonymous requests.
func callerUID(r *http.Request) string {
	id, _ := domauth.FromContext(r.Context())
	return id.UID
}
