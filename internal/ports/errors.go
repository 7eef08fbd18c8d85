package ports

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a response that decoded but did not carry
// the fields the contract requires, or did not decode at all.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned when the remote service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
