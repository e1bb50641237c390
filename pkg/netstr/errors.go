package netstr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat = errors.New("netstr: invalid format")
	ErrTooLarge      = errors.New("netstr: length exceeds maximum")
)

// FormatError reports where a malformed netstring was detected.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("netstr: format error at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}
