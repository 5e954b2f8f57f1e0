package flatten

import (
	"errors"
	"fmt"
)

// ErrParse marks Source Records whose raw payload is not valid JSON.
// It is the only error the flattener itself produces; the configured
// policy decides whether it ends the stream.
var ErrParse = errors.New("invalid JSON document")

// ParseError carries the origin of the unparsable Source Record.
type ParseError struct {
	Origin string
	Cause  error
}

// Error formats as "origin: invalid JSON document: cause".
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Origin, ErrParse.Error(), e.Cause)
}

// Unwrap returns ErrParse so callers can match with errors.Is.
func (e *ParseError) Unwrap() error { return ErrParse }
