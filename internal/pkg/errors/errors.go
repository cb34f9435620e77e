package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeTokenUnavailable  = "TOKEN_UNAVAILABLE"
	ErrCodeNoWebhook         = "NO_REGISTERED_WEBHOOK"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeUpstreamDown      = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// WriteFromError maps the engine error taxonomy onto an HTTP status.
func WriteFromError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = ErrCodeInternal
	)

	var appErr *ApplicationError
	switch {
	case stderrors.Is(err, ErrValidation):
		status, code = http.StatusBadRequest, ErrCodeInvalidInput
	case stderrors.Is(err, ErrTokenUnavailable):
		status, code = http.StatusPreconditionFailed, ErrCodeTokenUnavailable
	case stderrors.Is(err, ErrNoRegisteredWebhook):
		status, code = http.StatusNotFound, ErrCodeNoWebhook
	case stderrors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case stderrors.Is(err, ErrTransportUnavailable):
		status, code = http.StatusServiceUnavailable, ErrCodeUpstreamDown
	case stderrors.As(err, &appErr):
		status, code = http.StatusBadGateway, ErrCodeUpstream
	}

	WriteError(w, status, code, err.Error(), nil)
}
