package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestPattern(t *testing.T) *SubcommandPattern {
	t.Helper()
	root := &SubcommandPattern{
		Subcommands: []*SubcommandPattern{
			{
				Header: "test",
				Fragments: []Fragment{
					{Name: "name"},
					{Name: "args", Variadic: true, Receiver: AccumRx{}},
				},
				Options: []*OptionPattern{
					{Keyword: "--from", HeaderSeparators: "=", Fragments: []Fragment{{Name: "from"}}},
				},
			},
		},
	}
	require.NoError(t, root.Build())
	return root
}

func TestAnalyzeSubcommandWithPositionalsAndOption(t *testing.T) {
	root := buildTestPattern(t)
	buf := NewSliceBuffer("test", "alice", "a", "b", "c", "--from=src")

	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, []string{"test"}, res.Path)
	assert.Equal(t, "alice", res.Assignments["test.name"])
	assert.Equal(t, []any{"a", "b", "c"}, res.Assignments["test.args"])
	assert.Equal(t, "src", res.Assignments["test.from"])
}

func TestAnalyzeCountReceiverAccumulatesRepeatedFlag(t *testing.T) {
	root := &SubcommandPattern{
		Options: []*OptionPattern{
			{Keyword: "-v", AllowDuplicate: true},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("-v", "-v", "-v")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, 3, res.Assignments["-v"])
}

func TestAnalyzeDuplicateOptionRejectedWithoutAllowDuplicate(t *testing.T) {
	root := &SubcommandPattern{
		Options: []*OptionPattern{
			{Keyword: "--name", Fragments: []Fragment{{Name: "name"}}},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("--name", "a", "--name", "b")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.True(t, res.Rejected)
	assert.Equal(t, ReasonOptionDuplicatedProhibited, res.Reason)
}

func TestAnalyzeAllowDuplicateOptionOverwritesWithLastByDefault(t *testing.T) {
	root := &SubcommandPattern{
		Options: []*OptionPattern{
			{Keyword: "--name", AllowDuplicate: true, Fragments: []Fragment{{Name: "name"}}},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("--name", "a", "--name", "b")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, "b", res.Assignments["name"])
}

func TestAnalyzeCompactHeaderEnterInstantlySubcommand(t *testing.T) {
	root := &SubcommandPattern{
		CompactHeader: true,
		Subcommands: []*SubcommandPattern{
			{Header: "testsub", EnterInstantly: true, Fragments: []Fragment{{Name: "value", HasDefault: true, Default: "fallback"}}},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("testsubx")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, []string{"testsub"}, res.Path)
	assert.Equal(t, "x", res.Assignments["testsub.value"])
}

func TestAnalyzeNonForwardingOptionNotVisibleInChildSubcommand(t *testing.T) {
	root := &SubcommandPattern{
		Options: []*OptionPattern{
			{Keyword: "--only-here"},
		},
		Subcommands: []*SubcommandPattern{
			{Header: "child"},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("child", "--only-here")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.True(t, res.Rejected)
	assert.Equal(t, ReasonUnexpectedSegment, res.Reason)
}

func TestAnalyzeForwardingOptionVisibleInChildSubcommand(t *testing.T) {
	root := &SubcommandPattern{
		Options: []*OptionPattern{
			{Keyword: "--verbose", Forwarding: true},
		},
		Subcommands: []*SubcommandPattern{
			{Header: "child"},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("child", "--verbose")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, 1, res.Assignments["child.--verbose"])
}

// TestOptionExhaustionDoesNotRewind pins the documented behavior that tokens
// an option already consumed trying (and failing) to satisfy its own
// fragments are gone for good: they are not pushed back for a sibling
// fragment or option to retry.
func TestOptionExhaustionDoesNotRewind(t *testing.T) {
	root := &SubcommandPattern{
		Fragments: []Fragment{{Name: "tail", Variadic: true, Receiver: AccumRx{}}},
		Options: []*OptionPattern{
			{Keyword: "--pair", Fragments: []Fragment{{Name: "first"}, {Name: "second"}}},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("--pair", "only-one")
	_, err := Analyze(root, buf)
	require.Error(t, err)
	var verr *ValidateRejectedError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "second", verr.Fragment)
}

func TestAnalyzeUnsatisfiedRequiredFragmentRejected(t *testing.T) {
	root := &SubcommandPattern{
		Fragments: []Fragment{{Name: "name"}},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer()
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.True(t, res.Rejected)
	assert.Equal(t, ReasonUnsatisfied, res.Reason)
}

func TestAnalyzeStripsLongestRegisteredPrefix(t *testing.T) {
	root := &SubcommandPattern{
		Prefixes: []string{"!", "!!"},
		Subcommands: []*SubcommandPattern{
			{Header: "ping"},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("!!ping")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, []string{"ping"}, res.Path)
}

func TestAnalyzeRejectsPrefixMismatch(t *testing.T) {
	root := &SubcommandPattern{
		Prefixes: []string{"!"},
		Subcommands: []*SubcommandPattern{
			{Header: "ping"},
		},
	}
	require.NoError(t, root.Build())

	buf := NewSliceBuffer("ping")
	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.True(t, res.Rejected)
	assert.Equal(t, ReasonPrefixMismatch, res.Reason)
}

func TestAnalyzeWithoutPrefixesSkipsPrefixStep(t *testing.T) {
	root := buildTestPattern(t)
	buf := NewSliceBuffer("test", "alice")

	res, err := Analyze(root, buf)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, "alice", res.Assignments["test.name"])
}
