// Package indexer walks a directory tree and runs every eligible file
// through the chunk, embed, and store stages.
//
// Files are processed by a bounded worker pool; each file's chunks are
// written as a single batch so a failure leaves no partial file in the
// collection. Per-file problems (unreadable content, embedding or
// storage errors) are recorded as typed failures in the run report and
// never abort the run. Only a structural problem, an unusable root or
// a canceled context, surfaces as an error.
package indexer
