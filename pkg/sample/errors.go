package sample

import (
	"errors"
	"fmt"
)

// TransportError reports a network or protocol failure from the upstream
// endpoint. Status is the HTTP status code when one was received, 0
// otherwise. Message carries the response body (or underlying error text)
// for diagnosis. Transport failures are never retried by this layer.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: status %d: %s", e.Status, e.Message)
	}
	return "transport: " + e.Message
}

// IsTransport reports whether err is an upstream transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrEmptyBatch is returned when an upstream query succeeds but yields no
// completions, which would otherwise stall a stream forever.
var ErrEmptyBatch = errors.New("sample: upstream returned no completions")
