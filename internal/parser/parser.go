package parser

import (
	"errors"
	"fmt"
)

// ErrNoParser is returned by Parse when no parser is registered for
// the requested language. Callers fall back to windowed chunking.
var ErrNoParser = errors.New("no parser registered for language")

// Node is a top-level declaration found in a source file. Byte offsets
// are 0-based and half-open; line numbers are 1-based and inclusive.
type Node struct {
	// Tag is one of "function", "method", or "class".
	Tag       string
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
}

// LanguageParser parses source bytes of a single language into its
// top-level declaration nodes. Implementations must be stateless:
// Parse may be called concurrently from multiple indexing workers and
// must retain no configuration between calls.
type LanguageParser interface {
	Language() string
	Parse(src []byte) ([]Node, error)
}

// Registry maps language tags to parsers. Only top-level declarations
// are ever reported: nested functions and methods are deliberately not
// extracted, because positional record ids depend on a stable,
// shallow traversal.
type Registry struct {
	parsers map[string]LanguageParser
}

// NewRegistry returns a registry preloaded with the built-in parsers.
// Currently that is Go; every other language degrades to windowed
// chunking through ErrNoParser.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]LanguageParser)}
	r.Register(&GoParser{})
	return r
}

// Register adds or replaces the parser for its language tag.
func (r *Registry) Register(p LanguageParser) {
	r.parsers[p.Language()] = p
}

// Supported reports whether a parser exists for the language tag.
func (r *Registry) Supported(lang string) bool {
	_, ok := r.parsers[lang]
	return ok
}

// Parse dispatches to the registered parser for lang. It returns
// ErrNoParser for unregistered languages and wraps parser errors so
// callers can distinguish the two.
func (r *Registry) Parse(lang string, src []byte) ([]Node, error) {
	p, ok := r.parsers[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoParser, lang)
	}
	return p.Parse(src)
}
