package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401 response from the Catalog Service.
	ErrUnauthorized = errors.New("client: unauthorized")

	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("client: not found")

	// ErrMalformedResponse is returned when a response body is not the JSON
	// shape the operation expects.
	ErrMalformedResponse = errors.New("client: malformed response")
)

// StatusError is a non-2xx response from the Catalog Service.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d %s", e.Operation, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets callers match status classes with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
