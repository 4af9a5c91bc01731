package syntax

import (
	"errors"
	"fmt"
)

// ErrMissingBrace is wrapped by the SyntaxError of a "${" without its "}".
var ErrMissingBrace = errors.New("missing '}' in parameter expansion")

// SyntaxError is returned when a line can't be tokenized or parsed.
type SyntaxError struct {
	// Offset is the byte offset of the offending character.
	Offset int
	Msg    string
	// Err is the kind of error, if it has one.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func errorf(offset int, format string, a ...interface{}) *SyntaxError {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, a...)}
}
