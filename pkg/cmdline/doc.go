// Package cmdline implements a streaming, table-driven command-line
// argument analyzer: a tree of subcommand/option/fragment patterns is built
// once, then replayed against a lazy token Buffer to produce a flat
// assignment map, without materializing the whole argument list up front.
//
// The pattern tree is built with SubcommandPattern, which owns OptionPattern
// children and Fragment lists; the runtime walk is driven by Analyze, which
// descends the pattern tree token by token until the buffer is exhausted or
// the input is rejected, and returns a Result.
//
// This package emits no log lines of its own.
package cmdline
