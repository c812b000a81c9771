package cmdline

import "strings"

// OptionPattern describes one `--flag`-style option: its keyword, any
// aliases, whether repetition is allowed, whether it only takes effect
// inside the subcommand that declared it (forwarding = false) or propagates
// into every nested subcommand that follows (forwarding = true), and the
// fragments (if any) it captures after its own keyword token. Ported from
// firework's model.pattern.OptionPattern.
type OptionPattern struct {
	Keyword        string
	Aliases        []string
	SoftKeyword    bool
	AllowDuplicate bool
	CompactHeader  bool
	Forwarding     bool
	Separators     string
	Fragments      []Fragment
	// HeaderSeparators, when non-empty, lets the keyword and its first
	// value share one token ("--from=src"): the token is split at the
	// first byte in HeaderSeparators, the part before it is matched as the
	// keyword/alias, and the part after is pushed back onto the buffer for
	// immediate fragment capture.
	HeaderSeparators string
	// Receiver is used when Fragments is empty: the option is a bare flag
	// (e.g. "-v"), and Receiver folds each occurrence (CountRx by default).
	Receiver Receiver

	keywords map[string]struct{}
	trigger  *RadixTrie[string]
}

func (o *OptionPattern) build() error {
	if err := AssertFragmentsOrder(o.Fragments); err != nil {
		return err
	}
	o.keywords = map[string]struct{}{o.Keyword: {}}
	for _, a := range o.Aliases {
		o.keywords[a] = struct{}{}
	}
	if o.CompactHeader {
		o.trigger = NewRadixTrie[string]()
		o.trigger.Set(o.Keyword, o.Keyword)
		for _, a := range o.Aliases {
			o.trigger.Set(a, o.Keyword)
		}
	}
	return nil
}

// match reports whether tok triggers this option. For a compact-header
// option the longest registered prefix of tok wins and the unconsumed
// suffix is returned as a remainder to push back onto the buffer, where the
// option's first fragment picks it up ("-vfoo" triggers "-v" and leaves
// "foo"). The remainder is not matched against the option again, so "-vvv"
// triggers "-v" once and leaves "vv". Otherwise tok must equal the keyword
// or one of its aliases exactly.
func (o *OptionPattern) match(tok string) (remainder string, hasRemainder bool, ok bool) {
	if o.CompactHeader {
		key, _, found := o.trigger.LongestPrefixKey(tok)
		if !found {
			return "", false, false
		}
		rest := tok[len(key):]
		return rest, rest != "", true
	}
	if o.HeaderSeparators != "" {
		if idx := strings.IndexAny(tok, o.HeaderSeparators); idx >= 0 {
			head := tok[:idx]
			if _, exists := o.keywords[head]; exists {
				rest := tok[idx+1:]
				return rest, true, true
			}
		}
	}
	_, ok = o.keywords[tok]
	return "", false, ok
}

func (o *OptionPattern) receiver() Receiver {
	if o.Receiver != nil {
		return o.Receiver
	}
	return CountRx{}
}

// SubcommandPattern is one node of the command tree: a header token (the
// root pattern may leave Header empty, since the root is entered without a
// header word of its own), its own positional Fragments, the OptionPatterns
// available while inside it, and any nested Subcommands. Ported from
// firework's model.pattern.SubcommandPattern.
type SubcommandPattern struct {
	Header         string
	Aliases        []string
	SoftKeyword    bool
	CompactHeader  bool
	EnterInstantly bool
	Separators     string
	Fragments      []Fragment
	Options        []*OptionPattern
	Subcommands    []*SubcommandPattern
	// Prefixes, when non-empty, makes this pattern only usable through
	// Analyze's PREFIX step: the first token must start with one of these
	// literal strings (the longest match wins), the matched prefix is
	// stripped, and the remainder is pushed back onto the buffer before
	// normal header/command matching begins. Typically set only on a root
	// pattern (e.g. a chat bot's "!"/"~" command prefixes); nested
	// subcommands never consult it, since PREFIX only runs once per Analyze
	// call.
	Prefixes []string

	byKeyword   map[string]*SubcommandPattern
	compactTrie *RadixTrie[*SubcommandPattern]
	prefixTrie  *RadixTrie[string]
}

// Build validates fragment ordering recursively and indexes subcommands and
// options for fast lookup. It must be called once before the pattern is
// passed to Analyze.
func (p *SubcommandPattern) Build() error {
	if err := AssertFragmentsOrder(p.Fragments); err != nil {
		return err
	}
	p.byKeyword = map[string]*SubcommandPattern{}
	if p.CompactHeader {
		p.compactTrie = NewRadixTrie[*SubcommandPattern]()
	}
	if len(p.Prefixes) > 0 {
		p.prefixTrie = NewRadixTrie[string]()
		for _, prefix := range p.Prefixes {
			p.prefixTrie.Set(prefix, prefix)
		}
	}
	for _, sub := range p.Subcommands {
		if err := sub.Build(); err != nil {
			return err
		}
		p.byKeyword[sub.Header] = sub
		for _, a := range sub.Aliases {
			p.byKeyword[a] = sub
		}
		if p.CompactHeader {
			p.compactTrie.Set(sub.Header, sub)
			for _, a := range sub.Aliases {
				p.compactTrie.Set(a, sub)
			}
		}
	}
	for _, opt := range p.Options {
		if err := opt.build(); err != nil {
			return err
		}
	}
	return nil
}

// matchSubcommand finds the child subcommand tok should enter, if any, and
// how much of tok that match consumed. Exact header/alias match (which
// always consumes the whole token) is tried before the compact-keyword
// trie; a trie match that only consumed a prefix returns the rest as a
// remainder, which the entered subcommand reads as its next token.
// EnterInstantly is not consulted: every matched subcommand is entered at
// once. Mirrors AnalyzeSnapshot.get_subcommand.
func (p *SubcommandPattern) matchSubcommand(tok string) (sub *SubcommandPattern, remainder string, hasRemainder bool) {
	if sub, ok := p.byKeyword[tok]; ok {
		return sub, "", false
	}
	if p.compactTrie != nil {
		if key, sub, ok := p.compactTrie.LongestPrefixKey(tok); ok {
			rest := tok[len(key):]
			return sub, rest, rest != ""
		}
	}
	return nil, "", false
}

// stripPrefix runs the PREFIX step against buf: if p declares no Prefixes,
// it is a no-op (ok=true, matched=false). Otherwise the first token must
// start with the longest matching registered prefix; on match, that prefix
// is consumed and the remainder (if any) pushed back for HEADER/COMMAND
// matching to pick up. ok is false only on prefix_mismatch.
func (p *SubcommandPattern) stripPrefix(buf Buffer) (matched, ok bool) {
	if p.prefixTrie == nil {
		return false, true
	}
	text, has := buf.First()
	if !has {
		return false, true
	}
	key, _, found := p.prefixTrie.LongestPrefixKey(text)
	if !found {
		return false, false
	}
	if _, err := buf.Next(""); err != nil {
		return false, false
	}
	if rest := text[len(key):]; rest != "" {
		buf.PushLeft(rest)
	}
	return true, true
}

// forwardingOptions returns the subset of Options marked Forwarding, carried
// into every nested subcommand that is entered below this one.
func (p *SubcommandPattern) forwardingOptions() []*OptionPattern {
	var out []*OptionPattern
	for _, o := range p.Options {
		if o.Forwarding {
			out = append(out, o)
		}
	}
	return out
}
