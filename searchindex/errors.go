package searchindex

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetRecord when the object does not exist.
var ErrNotFound = errors.New("searchindex: record not found")

// ErrCircuitOpen is returned by Guarded while the breaker rejects calls.
var ErrCircuitOpen = errors.New("searchindex: circuit open")

// StatusError is a non-2xx answer from the search API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("searchindex: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("searchindex: %s: status %d: %s", e.Op, e.Code, e.Body)
}

// retryable reports whether a failed call may succeed if repeated.
// Client errors (4xx) and missing records are final.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return true
}
