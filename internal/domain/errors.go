package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField reports a required member that is absent or null.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField reports a member that is present but violates an Event invariant.
	ErrInvalidField = errors.New("invalid field value")
)

// DecodeError reports a feed payload that is not valid JSON or does not match
// the expected schema. Path locates the offending member when known,
// e.g. "features[3].properties.mag".
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode feed: %v", e.Err)
	}
	return fmt.Sprintf("decode feed: %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NetworkError reports a failed feed retrieval: a transport failure, a
// timeout, or a non-2xx response. StatusCode is zero when no response arrived.
type NetworkError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch feed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch feed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrorKind classifies err for logs and metrics: "network", "decode", or
// "internal" for anything else.
func ErrorKind(err error) string {
	var netErr *NetworkError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "internal"
	}
}
