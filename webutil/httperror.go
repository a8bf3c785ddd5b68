package webutil

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	msgBadRequest     = "Bad Request"
	msgNotFound       = "Resource not found"
	msgInternalServer = "Internal Server Error"
)

// HTTPError is an error MakeHandler turns into a response with Code and Message.
// The cause is only logged.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

func (he HTTPError) Unwrap() error {
	return he.cause
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{cause: errors.New(message), Code: code, Message: message}
}

func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{cause: cause, Code: code, Message: message}
}

// ErrBadRequest covers invalid payloads, failed validation and duplicate titles.
func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, orDefault(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, orDefault(message, msgBadRequest), cause)
}

// ErrNotFound covers book ids that do not name a stored book.
func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, orDefault(message, msgNotFound))
}

func ErrNotFoundWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusNotFound, orDefault(message, msgNotFound), cause)
}

// ErrInternalServerWrap hides message from the client and keeps it in the
// logged cause.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, msgInternalServer, fmt.Errorf("%s: %w", message, cause))
}
