package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
)

// identityHandler echoes the resolved caller.
func identityHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := domauth.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, id)
	})
}

func serve(mw func(http.Handler) http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	mw(identityHandler()).ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_NoToken_Anonymous(t *testing.T) {
	rr := serve(AuthMiddleware(fakeVerifier{}), "/api/v1/hostels", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("anonymous: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddleware_BasicScheme_401(t *testing.T) {
	rr := serve(AuthMiddleware(fakeVerifier{}), "/api/v1/hostels", "Basic dXNlcjpwYXNz")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("basic scheme: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rr := serve(AuthMiddleware(fakeVerifier{}), "/api/v1/hostels", "Bearer good")
	if rr.Code != http.StatusOK {
		t.Fatalf("valid token: got %d, want %d", rr.Code, http.StatusOK)
	}
	var id domauth.Identity
	if err := json.NewDecoder(rr.Body).Decode(&id); err != nil {
		t.Fatal(err)
	}
	if id.UID != "u1" || id.Role != domauth.RoleUser {
		t.Errorf("identity = %+v", id)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	rr := serve(AuthMiddleware(fakeVerifier{}), "/api/v1/hostels", "Bearer expired")
	body := expectError(t, rr, http.StatusUnauthorized, CodeAuthFailed)
	if body.Message != domauth.Message(domauth.CodeIDTokenExpired) {
		t.Errorf("message = %q", body.Message)
	}
}

func TestAuthMiddleware_VerifierFailureIsOpaque(t *testing.T) {
	rr := serve(AuthMiddleware(fakeVerifier{}), "/api/v1/hostels", "Bearer other")
	body := expectError(t, rr, http.StatusUnauthorized, CodeUnauthenticated)
	if body.Message != domauth.GenericMessage {
		t.Errorf("message = %q", body.Message)
	}
}

func TestAuthMiddleware_DevTokens(t *testing.T) {
	tests := []struct {
		header string
		uid    string
		role   domauth.Role
	}{
		{"Bearer u7", "u7", domauth.RoleUser},
		{"Bearer m1:manager", "m1", domauth.RoleManager},
		{"Bearer a1:admin", "a1", domauth.RoleAdmin},
		{"Bearer x:root", "x", domauth.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			rr := serve(AuthMiddleware(nil), "/api/v1/me/prefs", tt.header)
			var id domauth.Identity
			if err := json.NewDecoder(rr.Body).Decode(&id); err != nil {
				t.Fatal(err)
			}
			if id.UID != tt.uid || id.Role != tt.role {
				t.Errorf("identity = %+v", id)
			}
		})
	}

	if rr := serve(AuthMiddleware(nil), "/api/v1/me/prefs", "Bearer :admin"); rr.Code != http.StatusUnauthorized {
		t.Errorf("empty uid: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_WebsocketQueryToken(t *testing.T) {
	mw := AuthMiddleware(fakeVerifier{})

	rr := serve(mw, "/ws/live?access_token=good", "")
	if rr.Code != http.StatusOK {
		t.Errorf("websocket token: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = serve(mw, "/api/v1/me/prefs?access_token=good", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("query token outside websockets must be ignored, got %d", rr.Code)
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	mw := AuthMiddleware(fakeVerifier{})

	for _, path := range []string{"/health", "/metrics"} {
		rr := serve(mw, path, "Bearer garbage")
		if rr.Code != http.StatusNoContent {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusNoContent)
		}
	}
}
