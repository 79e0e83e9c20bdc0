package ft8

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProtocol is returned for an unknown protocol selector
	ErrInvalidProtocol = errors.New("invalid protocol")

	// ErrInvalidConfig is returned when a decoder or encoder configuration is out of range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoGrammar is returned when message text matches none of the packable formats
	ErrNoGrammar = errors.New("text matches no message format")

	// ErrInvalidTones is returned when a tone sequence does not fit the protocol
	ErrInvalidTones = errors.New("invalid tone sequence")
)

// EncodeError reports why a message text could not be packed
type EncodeError struct {
	Text   string
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("encode %q: %s", e.Text, e.Reason)
	}
	return fmt.Sprintf("encode %q: %v", e.Text, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
