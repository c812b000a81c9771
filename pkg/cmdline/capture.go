package cmdline

import (
	"regexp"
	"strconv"
)

// CaptureResult is what a Capture produces from one Token: the extracted
// value, and optionally leftover text from that same token that was not
// consumed and should be pushed back onto the buffer ahead of whatever
// comes next (RegexCapture is the only built-in strategy that ever sets
// HasRemainder).
type CaptureResult struct {
	Value        any
	Remainder    string
	HasRemainder bool
}

// Capture extracts a typed value out of one raw Token. Ported from
// firework's model.capture (Capture/SimpleCapture/ObjectCapture/PlainCapture/
// RegexCapture).
type Capture interface {
	Capture(tok Token) (CaptureResult, error)
}

// SimpleCapture returns the token's raw text unchanged.
type SimpleCapture struct{}

func (SimpleCapture) Capture(tok Token) (CaptureResult, error) {
	return CaptureResult{Value: tok.Text}, nil
}

// PlainCapture is SimpleCapture's twin for buffers that distinguish quoted
// text from bare words upstream: by the time a Token reaches this package
// quoting has already been resolved into Token.Text, so the behavior is the
// same, kept as a distinct type to mirror the original's distinct strategy.
type PlainCapture struct{}

func (PlainCapture) Capture(tok Token) (CaptureResult, error) {
	return CaptureResult{Value: tok.Text}, nil
}

// TypedCapture parses a token's text with Parse, rejecting the token with
// *UnexpectedTypeError if Parse fails. TypeName is used in the error message.
type TypedCapture struct {
	TypeName string
	Parse    func(string) (any, error)
}

func (c TypedCapture) Capture(tok Token) (CaptureResult, error) {
	v, err := c.Parse(tok.Text)
	if err != nil {
		return CaptureResult{}, &UnexpectedTypeError{Expected: c.TypeName, Got: tok.Text}
	}
	return CaptureResult{Value: v}, nil
}

// IntCapture is a TypedCapture preconfigured for base-10 integers.
func IntCapture() TypedCapture {
	return TypedCapture{
		TypeName: "int",
		Parse: func(s string) (any, error) {
			return strconv.Atoi(s)
		},
	}
}

// BoolCapture is a TypedCapture preconfigured for "true"/"false".
func BoolCapture() TypedCapture {
	return TypedCapture{
		TypeName: "bool",
		Parse: func(s string) (any, error) {
			return strconv.ParseBool(s)
		},
	}
}

// RegexCapture matches Pattern against the start of the token's text. Only
// the matched prefix is consumed as the value; anything left over in the
// token is returned as a remainder to push back onto the buffer.
type RegexCapture struct {
	Pattern *regexp.Regexp
}

func (c RegexCapture) Capture(tok Token) (CaptureResult, error) {
	loc := c.Pattern.FindStringIndex(tok.Text)
	if loc == nil || loc[0] != 0 {
		return CaptureResult{}, &RegexMismatchError{Pattern: c.Pattern.String(), Raw: tok.Text}
	}
	matched := tok.Text[:loc[1]]
	if loc[1] == len(tok.Text) {
		return CaptureResult{Value: matched}, nil
	}
	return CaptureResult{Value: matched, Remainder: tok.Text[loc[1]:], HasRemainder: true}, nil
}
