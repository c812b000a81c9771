package cmdline

import "github.com/google/uuid"

// RejectReason tags why Analyze stopped short of a full parse, mirroring
// firework's LoopflowExitReason tags.
type RejectReason string

const (
	ReasonNone                      RejectReason = ""
	ReasonUnsatisfied                RejectReason = "unsatisfied"
	ReasonUnexpectedSegment          RejectReason = "unexpected_segment"
	ReasonOptionDuplicatedProhibited RejectReason = "option_duplicated_prohibited"
	ReasonPrefixMismatch             RejectReason = "prefix_mismatch"
)

// Result is the outcome of one Analyze call: either a flat assignment map
// (keyed by fragment/option name, dot-joined with the subcommand path for
// nested values) or a rejection with a reason. SessionID identifies this one
// top-level Analyze call for correlating log lines across a parse.
type Result struct {
	SessionID   string
	Path        []string
	Assignments map[string]any
	Rejected    bool
	Reason      RejectReason
}

// Analyze walks pattern against buf until the buffer is exhausted or the
// pattern tree rejects the input, producing a flat assignment map. pattern
// must already have had Build called on it (and on every descendant).
//
// If pattern declares Prefixes, Analyze first runs the PREFIX step against
// the very first token (matching firework's prefix_entrypoint): the longest
// registered prefix is stripped before HEADER/COMMAND matching begins, or
// the call is rejected with ReasonPrefixMismatch. Nested subcommands never
// run this step themselves -- it only applies once, at the top of the call.
func Analyze(pattern *SubcommandPattern, buf Buffer) (*Result, error) {
	if _, ok := pattern.stripPrefix(buf); !ok {
		return &Result{Rejected: true, Reason: ReasonPrefixMismatch, SessionID: uuid.NewString()}, nil
	}

	res, err := analyzeNode(pattern, buf, nil)
	if res != nil {
		res.SessionID = uuid.NewString()
	}
	return res, err
}

func analyzeNode(pattern *SubcommandPattern, buf Buffer, inherited []*OptionPattern) (*Result, error) {
	res := &Result{Assignments: map[string]any{}}
	seenOptions := map[string]bool{}
	fragIdx := 0

	availableOptions := func() []*OptionPattern {
		return append(append([]*OptionPattern{}, pattern.Options...), inherited...)
	}

	for {
		text, ok := buf.First()
		if !ok {
			break
		}

		if child, remainder, hasRemainder := pattern.matchSubcommand(text); child != nil {
			if _, err := buf.Next(""); err != nil {
				return nil, err
			}
			if hasRemainder {
				buf.PushLeft(remainder)
			}
			childInherited := append(append([]*OptionPattern{}, inherited...), pattern.forwardingOptions()...)
			childRes, err := analyzeNode(child, buf, childInherited)
			if err != nil {
				return nil, err
			}
			if childRes.Rejected {
				res.Rejected = true
				res.Reason = childRes.Reason
				return res, nil
			}
			res.Path = append([]string{child.Header}, childRes.Path...)
			for k, v := range childRes.Assignments {
				res.Assignments[child.Header+"."+k] = v
			}
			return res, nil
		}

		matched := false
		for _, opt := range availableOptions() {
			remainder, hasRemainder, ok := opt.match(text)
			if !ok {
				continue
			}
			if seenOptions[opt.Keyword] && !opt.AllowDuplicate {
				res.Rejected = true
				res.Reason = ReasonOptionDuplicatedProhibited
				return res, nil
			}
			if _, err := buf.Next(""); err != nil {
				return nil, err
			}
			if hasRemainder {
				buf.PushLeft(remainder)
			}
			if err := captureOption(res.Assignments, opt, buf); err != nil {
				return nil, err
			}
			seenOptions[opt.Keyword] = true
			matched = true
			break
		}
		if matched {
			continue
		}

		if fragIdx < len(pattern.Fragments) {
			frag := pattern.Fragments[fragIdx]
			val, err := captureOneFragment(frag, pattern.Separators, buf)
			if err != nil {
				return nil, err
			}
			res.Assignments[frag.Name] = frag.receiver().Put(res.Assignments[frag.Name], val)
			if !frag.Variadic {
				fragIdx++
			}
			continue
		}

		// Nothing consumed this token: reject rather than silently drop it.
		// Buffer exhaustion inside an option's own fragment capture does NOT
		// rewind consumed tokens back to this level (see
		// TestOptionExhaustionDoesNotRewind) -- this branch only fires when
		// the token itself never matched anything at this level to begin
		// with.
		res.Rejected = true
		res.Reason = ReasonUnexpectedSegment
		return res, nil
	}

	for i := fragIdx; i < len(pattern.Fragments); i++ {
		f := pattern.Fragments[i]
		if f.HasDefault {
			res.Assignments[f.Name] = f.receiver().Put(res.Assignments[f.Name], f.Default)
			continue
		}
		if f.Variadic {
			continue
		}
		res.Rejected = true
		res.Reason = ReasonUnsatisfied
		return res, nil
	}
	return res, nil
}

func captureOneFragment(frag Fragment, fallbackSeparators string, buf Buffer) (any, error) {
	sep := frag.Separators
	if sep == "" {
		sep = fallbackSeparators
	}
	tok, err := buf.Next(sep)
	if err != nil {
		return nil, &CaptureRejectedError{Fragment: frag.Name, Err: err}
	}

	result, err := frag.capture().Capture(tok)
	if err != nil {
		return nil, err
	}

	if tok.HasTail {
		buf.PushLeft(tok.Tail)
	}
	if result.HasRemainder {
		buf.PushLeft(result.Remainder)
	}

	val := result.Value
	if frag.Validate != nil {
		if err := frag.Validate(val); err != nil {
			return nil, &ValidateRejectedError{Fragment: frag.Name, Err: err}
		}
	}
	if frag.Transform != nil {
		v, err := frag.Transform(val)
		if err != nil {
			return nil, &TransformPanicError{Fragment: frag.Name, Err: err}
		}
		val = v
	}
	return val, nil
}

// captureOption runs one option invocation's own fragment list (if any)
// against buf, folding results into assign. An option with no fragments is a
// bare flag: its receiver (CountRx by default) is applied once per
// invocation with a nil captured value.
//
// Per SPEC_FULL.md §5.4, if the buffer runs out mid-capture the tokens this
// option already consumed are gone for good: they are not pushed back for
// the caller to try again at a higher level.
func captureOption(assign map[string]any, opt *OptionPattern, buf Buffer) error {
	if len(opt.Fragments) == 0 {
		assign[opt.Keyword] = opt.receiver().Put(assign[opt.Keyword], nil)
		return nil
	}

	for i, frag := range opt.Fragments {
		_, hasMore := buf.First()
		if !hasMore {
			if frag.HasDefault {
				assign[frag.Name] = frag.receiver().Put(assign[frag.Name], frag.Default)
				continue
			}
			if frag.Variadic {
				return nil
			}
			return &ValidateRejectedError{Fragment: frag.Name, Err: errUnsatisfiedOption}
		}

		sep := opt.Separators
		if frag.Separators != "" {
			sep = frag.Separators
		}
		val, err := captureOneFragment(withSeparators(frag, sep), "", buf)
		if err != nil {
			return err
		}
		assign[frag.Name] = frag.receiver().Put(assign[frag.Name], val)
		_ = i
	}
	return nil
}

// captureOption captures exactly one value per variadic fragment per
// occurrence of the option: an option declared AllowDuplicate with a
// variadic fragment accumulates across repeated invocations ("--tag a --tag
// b") rather than eagerly consuming every following token on the first
// occurrence, which would swallow tokens meant for a sibling option or a
// nested subcommand header.

func withSeparators(f Fragment, sep string) Fragment {
	f.Separators = sep
	return f
}
