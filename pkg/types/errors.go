package types

import "fmt"

// ErrorKind enumerates every failure category a Runinator component
// boundary can surface. HTTP handlers and clients map into and out of
// this set instead of passing raw errors across the wire.
type ErrorKind string

const (
	ErrDiscovery      ErrorKind = "discovery"
	ErrInvalidBaseURL ErrorKind = "invalid_base_url"
	ErrInvalidPath    ErrorKind = "invalid_path"
	ErrHTTP           ErrorKind = "http_error"
	ErrRequest        ErrorKind = "request_error"
	ErrMissingTaskID  ErrorKind = "missing_task_id"
	ErrDuplicate      ErrorKind = "duplicate"
	ErrUnknownDelivery ErrorKind = "unknown_delivery"
	ErrNotImplemented ErrorKind = "not_implemented"
	ErrInternal       ErrorKind = "internal"
	ErrRuntime        ErrorKind = "runtime"
)

// Error is the single sum type every Runinator component boundary raises
// and matches on. Message and Wrapped apply to any kind; StatusCode, URL
// and Body are populated only for ErrHTTP, and Code only for ErrRuntime.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int    // ErrHTTP
	URL        string // ErrHTTP
	Body       string // ErrHTTP
	Code       int    // ErrRuntime: provider-reported exit code
	Wrapped    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrHTTP:
		return fmt.Sprintf("http error: %d from %s: %s", e.StatusCode, e.URL, e.Body)
	case ErrRuntime:
		return fmt.Sprintf("runtime error (code %d): %s", e.Code, e.Message)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is match on Kind alone, so callers can write
// errors.Is(err, &types.Error{Kind: types.ErrDuplicate}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewDiscoveryError(message string) *Error {
	return &Error{Kind: ErrDiscovery, Message: message}
}

func NewInvalidBaseURLError(raw string, cause error) *Error {
	return &Error{Kind: ErrInvalidBaseURL, Message: raw, Wrapped: cause}
}

func NewInvalidPathError(path string) *Error {
	return &Error{Kind: ErrInvalidPath, Message: path}
}

func NewHTTPError(statusCode int, url, body string) *Error {
	return &Error{Kind: ErrHTTP, StatusCode: statusCode, URL: url, Body: body}
}

func NewRequestError(cause error) *Error {
	return &Error{Kind: ErrRequest, Message: cause.Error(), Wrapped: cause}
}

func NewMissingTaskIDError() *Error {
	return &Error{Kind: ErrMissingTaskID}
}

func NewDuplicateError(dedupeKey string) *Error {
	return &Error{Kind: ErrDuplicate, Message: dedupeKey}
}

func NewUnknownDeliveryError(deliveryID string) *Error {
	return &Error{Kind: ErrUnknownDelivery, Message: deliveryID}
}

func NewNotImplementedError(what string) *Error {
	return &Error{Kind: ErrNotImplemented, Message: what}
}

func NewInternalError(cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: ErrInternal, Message: msg, Wrapped: cause}
}

func NewRuntimeError(code int, message string) *Error {
	return &Error{Kind: ErrRuntime, Code: code, Message: message}
}
