package malarenergi

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure means the document or payload no longer has the expected
	// shape: a missing root, section, metadata field or JSON key.
	ErrStructure = errors.New("unexpected structure")
	// ErrValue means a field was present but its value could not be mapped.
	ErrValue          = errors.New("unexpected value")
	ErrUnknownService = fmt.Errorf("%w: unrecognized service", ErrValue)
	ErrUnknownStatus  = fmt.Errorf("%w: unrecognized status", ErrValue)
	ErrInvalidWindow  = errors.New("invalid time window")
)

// TransportError is returned when the HTTP collaborator fails or the
// server answers with a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
