package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	domauth "github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
)

// Stable error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeUnauthenticated  = "unauthenticated"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeAlreadyExists    = "already_exists"
	CodeEmailInUse       = "email_in_use"
	CodeRateLimited      = "rate_limited"
	CodeAuthFailed       = "auth_failed"
	CodeStoreUnavailable = "store_unavailable"
	CodeStoreRejected    = "store_rejected"
	CodeMutationFailed   = "mutation_failed"
	CodeMediaRejected    = "media_rejected"
	CodeGeolocation      = "geolocation_failed"
	CodeNotImplemented   = "not_implemented"
	CodeInternal         = "internal_error"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Kind      domain.Kind       `json:"kind,omitempty"`
	Retryable bool              `json:"retryable"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// errorHandler maps a domain error to a status and body. ok is false when err is not handled.
type errorHandler func(err error) (status int, body ErrorResponse, ok bool)

var errorHandlers = []errorHandler{
	validationHandler,
	authErrorHandler,
	locationErrorHandler,
	sentinelHandler(domain.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated),
	sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
	sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrFetchUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	sentinelHandler(domain.ErrFetchRejected, http.StatusBadGateway, CodeStoreRejected),
	sentinelHandler(domain.ErrMediaRejected, http.StatusUnprocessableEntity, CodeMediaRejected),
	sentinelHandler(domain.ErrMutationFailed, http.StatusBadGateway, CodeMutationFailed),
	sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The sentinel's own message is sent, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(err error) (int, ErrorResponse, bool) {
		if !errors.Is(err, sentinel) {
			return 0, ErrorResponse{}, false
		}
		kind := domain.KindOf(err)
		return status, ErrorResponse{
			Code:      code,
			Message:   sentinel.Error(),
			Kind:      kind,
			Retryable: kind.Retryable(),
		}, true
	}
}

func validationHandler(err error) (int, ErrorResponse, bool) {
	var ve *validation.Error
	if !errors.As(err, &ve) {
		return 0, ErrorResponse{}, false
	}
	return http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: domain.ErrInvalidInput.Error(),
		Kind:    domain.KindValidation,
		Fields:  ve.Fields,
	}, true
}

// authErrorHandler sends the fixed user-facing message of a provider code.
func authErrorHandler(err error) (int, ErrorResponse, bool) {
	var ae *domauth.Error
	if !errors.As(err, &ae) {
		return 0, ErrorResponse{}, false
	}
	status, code := http.StatusUnauthorized, CodeAuthFailed
	switch ae.Code {
	case domauth.CodeEmailAlreadyInUse:
		status, code = http.StatusConflict, CodeEmailInUse
	case domauth.CodeTooManyRequests:
		status, code = http.StatusTooManyRequests, CodeRateLimited
	case domauth.CodeInvalidEmail, domauth.CodeWeakPassword:
		status, code = http.StatusBadRequest, CodeValidationFailed
	}
	return status, ErrorResponse{
		Code:      code,
		Message:   ae.Error(),
		Kind:      ae.Kind(),
		Retryable: ae.Code == domauth.CodeTooManyRequests,
	}, true
}

func locationErrorHandler(err error) (int, ErrorResponse, bool) {
	var le *geo.LocationError
	if !errors.As(err, &le) {
		return 0, ErrorResponse{}, false
	}
	return http.StatusUnprocessableEntity, ErrorResponse{
		Code:      CodeGeolocation,
		Message:   le.Error(),
		Kind:      domain.KindGeolocation,
		Retryable: le.Retryable(),
	}, true
}

// classify maps err through the handler list. Unhandled errors become an opaque 500.
func classify(err error) (int, ErrorResponse) {
	for _, h := range errorHandlers {
		if status, body, ok := h(err); ok {
			return status, body
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Code:    CodeInternal,
		Message: "internal error",
		Kind:    domain.KindInternal,
	}
}

// errorBody is the body for err without a status, for errors embedded in a 200 response.
func errorBody(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	_, body := classify(err)
	return &body
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError && body.Code == CodeInternal {
		log.Error("internal error", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err), zap.String("code", body.Code))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
