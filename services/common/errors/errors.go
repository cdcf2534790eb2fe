package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for propagation decisions.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindTransientStore   Kind = "transient_store"
	KindPublish          Kind = "publish"
	KindUnsupportedRoute Kind = "unsupported_route"
)

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports a missing or malformed required field. Never retried.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound reports an absent entity.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

// TransientStore reports that the underlying store is unavailable or
// throttled. Callers should retry.
func TransientStore(message string, err error) *Error {
	return New(KindTransientStore, http.StatusServiceUnavailable, message, err)
}

// Publish reports that an event could not be handed to the router.
func Publish(message string, err error) *Error {
	return New(KindPublish, http.StatusBadGateway, message, err)
}

// UnsupportedRoute reports an unrecognized method/path combination.
func UnsupportedRoute(method, path string) *Error {
	return New(KindUnsupportedRoute, http.StatusBadRequest,
		fmt.Sprintf("Unsupported route: %q %q", method, path), nil)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// ResponseBody is the inner body of the uniform response envelope.
type ResponseBody struct {
	Message  string `json:"message"`
	Body     any    `json:"body,omitempty"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// Response is the envelope every synchronous operation answers with.
type Response struct {
	StatusCode int          `json:"statusCode"`
	Body       ResponseBody `json:"body"`
}

// OK builds a success envelope for a finished operation.
func OK(operation string, body any) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Body: ResponseBody{
			Message: fmt.Sprintf("Successfully finished operation: %q", operation),
			Body:    body,
		},
	}
}

// Failure converts any error into the error envelope. The status code comes
// from the application error when there is one, 500 otherwise.
func Failure(err error) *Response {
	code := http.StatusInternalServerError
	var appErr *Error
	if stderrors.As(err, &appErr) && appErr.Code != 0 {
		code = appErr.Code
	}
	return &Response{
		StatusCode: code,
		Body: ResponseBody{
			Message:  "Failed to perform operation",
			ErrorMsg: err.Error(),
		},
	}
}
