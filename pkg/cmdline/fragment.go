package cmdline

import "fmt"

// FragmentGroup tags a set of Fragments as mutually exclusive alternatives;
// identity (not value) is what matters, so two groups with the same Name are
// still distinct groups. Ported from firework's model.fragment.FragmentGroup.
type FragmentGroup struct {
	Name string
}

// Fragment describes one positional value an option or subcommand expects to
// capture off the buffer.
type Fragment struct {
	Name       string
	Variadic   bool
	Group      *FragmentGroup
	HasDefault bool
	Default    any
	Separators string
	Capture    Capture
	Receiver   Receiver
	Validate   func(any) error
	Transform  func(any) (any, error)
}

func (f Fragment) capture() Capture {
	if f.Capture != nil {
		return f.Capture
	}
	return SimpleCapture{}
}

func (f Fragment) receiver() Receiver {
	if f.Receiver != nil {
		return f.Receiver
	}
	return DefaultRx{}
}

// AssertFragmentsOrder validates a fragment list against the ordering
// invariants the analyzer relies on: no fragment may follow a variadic one,
// no required fragment may follow a defaulted one, and a variadic fragment
// may not itself carry a default. Ported from firework's
// model.fragment.assert_fragments_order.
func AssertFragmentsOrder(fragments []Fragment) error {
	seenVariadic := false
	seenDefault := false
	for _, f := range fragments {
		if seenVariadic {
			return fmt.Errorf("cmdline: fragment %q follows a variadic fragment", f.Name)
		}
		if f.Variadic && f.HasDefault {
			return fmt.Errorf("cmdline: variadic fragment %q cannot carry a default", f.Name)
		}
		if seenDefault && !f.HasDefault && !f.Variadic {
			return fmt.Errorf("cmdline: required fragment %q follows a defaulted fragment", f.Name)
		}
		if f.HasDefault {
			seenDefault = true
		}
		if f.Variadic {
			seenVariadic = true
		}
	}
	return nil
}
