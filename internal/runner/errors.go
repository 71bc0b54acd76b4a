package runner

import (
	"errors"
	"fmt"
)

var errNoSender = errors.New("runner: no sender configured")

// HTTPError represents an HTTP response with a failing status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// PanicError is recorded when a Sender panics instead of returning.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sender panicked: %v", e.Value)
}
