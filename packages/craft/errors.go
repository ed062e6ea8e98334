package craft

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError
	ErrTransport = errors.New("transport error")
	// ErrInvalidPayload is returned when a payload cannot be sent in the
	// requested encoding
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNoHistory is returned by operations on the last exchange when
	// nothing has been sent yet
	ErrNoHistory = errors.New("no request history available")
)

// TransportError reports a failed dispatch. No exchange is recorded for it.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
