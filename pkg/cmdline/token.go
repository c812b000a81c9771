package cmdline

import (
	"fmt"
	"strings"
)

// Token is one lexical unit handed back by Buffer.Next. When separators were
// supplied and one was found, Tail holds everything after the separator so
// the caller can decide whether to push it back for the next fragment.
type Token struct {
	Text    string
	Tail    string
	HasTail bool
}

// Buffer is the lazy token source the analyzer consumes. It is intentionally
// minimal so any upstream lexer (shell-style quoting, a line editor's history
// buffer, …) can implement it without adopting this package's own types.
type Buffer interface {
	// Next consumes and returns the next token. If separators is non-empty
	// and one of its bytes occurs in the upcoming raw text, the token is
	// split at the first occurrence: Text is everything before it, Tail
	// (with HasTail true) is everything after.
	Next(separators string) (Token, error)
	// First peeks at the upcoming raw text without consuming it. It returns
	// false once the buffer is exhausted.
	First() (string, bool)
	// PushLeft puts raw text back at the front of the buffer, to be
	// re-lexed by a later Next call.
	PushLeft(text string)
	// AddToAhead enqueues an already-lexed token at the front of the buffer,
	// to be returned by the next Next call without being re-split.
	AddToAhead(tok Token)
}

// SliceBuffer is a reference Buffer implementation over an in-memory slice
// of strings, used by every test in this package and by the cmdline repl
// demo command.
type SliceBuffer struct {
	pending []any // each element is either a string or a Token
}

// NewSliceBuffer builds a SliceBuffer over already-split argv-style tokens.
func NewSliceBuffer(items ...string) *SliceBuffer {
	pending := make([]any, len(items))
	for i, s := range items {
		pending[i] = s
	}
	return &SliceBuffer{pending: pending}
}

func (b *SliceBuffer) First() (string, bool) {
	if len(b.pending) == 0 {
		return "", false
	}
	switch v := b.pending[0].(type) {
	case string:
		return v, true
	case Token:
		return v.Text, true
	default:
		return "", false
	}
}

func (b *SliceBuffer) PushLeft(text string) {
	if text == "" {
		return
	}
	b.pending = append([]any{text}, b.pending...)
}

func (b *SliceBuffer) AddToAhead(tok Token) {
	b.pending = append([]any{tok}, b.pending...)
}

func (b *SliceBuffer) Next(separators string) (Token, error) {
	if len(b.pending) == 0 {
		return Token{}, ErrBufferExhausted
	}
	head := b.pending[0]
	b.pending = b.pending[1:]

	switch v := head.(type) {
	case Token:
		return v, nil
	case string:
		if separators == "" {
			return Token{Text: v}, nil
		}
		idx := strings.IndexAny(v, separators)
		if idx < 0 {
			return Token{Text: v}, nil
		}
		return Token{Text: v[:idx], Tail: v[idx+1:], HasTail: true}, nil
	default:
		return Token{}, fmt.Errorf("cmdline: unsupported buffer item type %T", head)
	}
}

// Empty reports whether the buffer has no more pending raw text.
func (b *SliceBuffer) Empty() bool {
	return len(b.pending) == 0
}
