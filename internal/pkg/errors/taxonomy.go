package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrTransportUnavailable means the host could not be reached at all,
	// as opposed to answering with an error status.
	ErrTransportUnavailable = stderrors.New("transport unavailable")

	// ErrNetworkUnavailable is the name resource clients use for the same condition.
	ErrNetworkUnavailable = ErrTransportUnavailable

	// ErrApplication matches any non-2xx upstream response.
	ErrApplication = stderrors.New("application error")

	// ErrTokenUnavailable means no valid bearer token is stored. There is no
	// issuing endpoint, so the operator has to enter one manually.
	ErrTokenUnavailable = stderrors.New("token unavailable")

	ErrValidation          = stderrors.New("validation failed")
	ErrUnrecognizedEvent   = stderrors.New("unrecognized webhook event")
	ErrNoRegisteredWebhook = stderrors.New("no registered webhook")
	ErrNotFound            = stderrors.New("not found")
)

type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.URL, ErrTransportUnavailable, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransportUnavailable
}

type ApplicationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func (e *ApplicationError) Is(target error) bool {
	return target == ErrApplication
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
