// Package parser turns source bytes into top-level declaration nodes
// for syntax-aware chunking.
//
// Parsing is a stateless function of (language, bytes): each call
// builds its own position table and retains nothing, so indexing
// workers can parse concurrently without sharing a configured parser
// instance.
//
// Traversal is intentionally shallow. Only top-level function, method,
// and type declarations are reported; nested declarations are not,
// because record ids are positional and deepening the traversal would
// silently change chunk counts for every indexed file.
package parser
