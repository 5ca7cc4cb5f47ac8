// Package resolution drives one record resolution through its states:
// local lookup, progressively wider remote search, related-record linking
// and cache population, emitting an ordered stream of progress events.
package resolution

import "github.com/wareline/resolve-core/internal/record"

// =============================================================================
// PROGRESS STREAM
// =============================================================================

// ProgressEvent is one unit of the streamed output: a log line or the
// terminal result. Exactly one ResultEvent is emitted per completed
// resolution; a stream that closes without one was cancelled or aborted.
type ProgressEvent interface {
	progressEvent()
}

// LogEvent is a human-readable progress line. Ordering reflects causal
// search order and is preserved end-to-end.
type LogEvent struct {
	Line string
}

func (LogEvent) progressEvent() {}

// ResultEvent carries the terminal result of a resolution.
type ResultEvent struct {
	Result *Result
}

func (ResultEvent) progressEvent() {}

// Result is the terminal outcome: the resolved primary record, optionally
// the linked related record (an outbound's return), and an error string
// used only when the primary is nil.
type Result struct {
	Primary *record.Record
	Related *record.Record
	Err     string
}

// SearchRequest describes one resolution.
type SearchRequest struct {
	// Term is the opaque search term.
	Term string

	// Store optionally restricts remote search to one store.
	Store string

	// Directions filters the directions searched. Empty means both.
	Directions []record.Direction
}
