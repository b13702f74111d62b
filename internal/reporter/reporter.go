// Package reporter defines the interface a subsystem implements to expose its statistics as a
// printable report. The engine's concurrency stats satisfy it, and the CLI prints the result under
// -debug.
//
// Report() returns one or more newline-separated lines ready for a log. The caller is expected to
// add its own prefix (timestamp, source) per line, so implementations should not emit a trailing
// newline and single-line reporters need no newline at all.
package reporter

// Reporter is the sole package interface.
type Reporter interface {

	// Name identifies the reporting subsystem; callers normally use it to prefix the report
	// output.
	Name() string

	// Report renders the current statistics. When resetCounters is true, the internal values
	// behind the report are reset *after* the report is produced. Implementations must tolerate
	// concurrent calls.
	Report(resetCounters bool) string
}
