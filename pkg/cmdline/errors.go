package cmdline

import (
	"errors"
	"fmt"
)

// ErrBufferExhausted is returned by Buffer.Next when no more tokens remain.
var ErrBufferExhausted = errors.New("cmdline: buffer exhausted")

// CaptureRejectedError wraps a failure while pulling a token out of the
// buffer for a fragment (usually buffer exhaustion).
type CaptureRejectedError struct {
	Fragment string
	Err      error
}

func (e *CaptureRejectedError) Error() string {
	return fmt.Sprintf("cmdline: capture rejected for fragment %q: %v", e.Fragment, e.Err)
}
func (e *CaptureRejectedError) Unwrap() error { return e.Err }

// ValidateRejectedError wraps a failure from a fragment's Validate callback,
// or from an option whose required fragment never got a value.
type ValidateRejectedError struct {
	Fragment string
	Err      error
}

func (e *ValidateRejectedError) Error() string {
	return fmt.Sprintf("cmdline: validation rejected for fragment %q: %v", e.Fragment, e.Err)
}
func (e *ValidateRejectedError) Unwrap() error { return e.Err }

// UnexpectedTypeError is returned by a TypedCapture when the token's text
// does not parse to the expected type.
type UnexpectedTypeError struct {
	Expected string
	Got      string
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("cmdline: expected %s, got %q", e.Expected, e.Got)
}

// RegexMismatchError is returned by a RegexCapture when the pattern does not
// match at the start of the token's text.
type RegexMismatchError struct {
	Pattern string
	Raw     string
}

func (e *RegexMismatchError) Error() string {
	return fmt.Sprintf("cmdline: %q does not match pattern %q", e.Raw, e.Pattern)
}

// TransformPanicError wraps a failure from a fragment's Transform callback.
type TransformPanicError struct {
	Fragment string
	Err      error
}

func (e *TransformPanicError) Error() string {
	return fmt.Sprintf("cmdline: transform panicked for fragment %q: %v", e.Fragment, e.Err)
}
func (e *TransformPanicError) Unwrap() error { return e.Err }

var errUnsatisfiedOption = errors.New("cmdline: option fragment never received a value")
