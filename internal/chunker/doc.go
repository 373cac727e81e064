// Package chunker splits file content into the chunks that get
// embedded and indexed.
//
// Two strategies exist. Code files whose language has a registered
// parser are chunked at top-level declaration boundaries (functions,
// methods, type declarations); declarations of 50 trimmed characters
// or fewer are discarded as too small to carry context. Everything
// else (parse failures, languages without a parser, documentation,
// and configuration files) is split into non-overlapping 50-line
// windows. Markdown is stripped to plain text before windowing.
//
// Chunk order always equals source appearance order; the indexer
// derives stable record ids from that order.
package chunker
