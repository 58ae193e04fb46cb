package apierror

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Causes attached to Error values produced by the transport.
var (
	// Refresh errors
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrMissingAccessToken = errors.New("refresh response has no access token")

	// Transport errors
	ErrInvalidBody  = errors.New("response body is not valid JSON")
	ErrUnsuccessful = errors.New("server reported failure")
)

const defaultMessage = "Request failed"

// Kind classifies an Error for the presentation layer.
type Kind string

const (
	KindValidation Kind = "validation" // Field errors, surfaced to forms
	KindAuth       Kind = "auth"       // Session is gone, caller must log in again
	KindForbidden  Kind = "forbidden"  // Role or permission mismatch
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network" // No response was received
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// Error is the single failure shape returned above the transport.
// Status is zero when no HTTP response was received.
type Error struct {
	Message string
	Code    string
	Details map[string]any
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Kind() Kind {
	switch {
	case errors.Is(e.Cause, ErrNoRefreshToken), errors.Is(e.Cause, ErrRefreshFailed):
		return KindAuth
	case e.Status == http.StatusUnauthorized:
		return KindAuth
	case e.Status == http.StatusForbidden:
		return KindForbidden
	case e.Status == http.StatusNotFound:
		return KindNotFound
	case e.Code == "validation_error", e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return KindValidation
	case e.Status == 0:
		return KindNetwork
	case e.Status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// FieldErrors flattens Details into field -> messages, the shape the server's
// serializer validation produces. Non-list values are stringified.
func (e *Error) FieldErrors() map[string][]string {
	out := make(map[string][]string, len(e.Details))
	for field, v := range e.Details {
		switch val := v.(type) {
		case []any:
			for _, m := range val {
				out[field] = append(out[field], fmt.Sprint(m))
			}
		case string:
			out[field] = []string{val}
		default:
			out[field] = []string{fmt.Sprint(val)}
		}
	}
	return out
}

// New builds an Error, applying the default message when none is known.
func New(status int, message, code string, details map[string]any, cause error) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" {
		message = defaultMessage
	}
	return &Error{Message: message, Code: code, Details: details, Status: status, Cause: cause}
}

// Clone returns a copy of e that shares no mutable state with it.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Details = maps.Clone(e.Details)
	return &dup
}

// From converts any error into an *Error. Existing *Error values in the chain
// are returned as they are.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return New(0, "", "", nil, err)
}

// KindOf returns the Kind of err, or KindUnknown when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return From(err).Kind()
}

func IsAuth(err error) bool      { return err != nil && KindOf(err) == KindAuth }
func IsNotFound(err error) bool  { return err != nil && KindOf(err) == KindNotFound }
func IsForbidden(err error) bool { return err != nil && KindOf(err) == KindForbidden }
