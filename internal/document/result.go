package document

import "time"

// Result is the outcome of a single Build or PostProcess call.
type Result struct {
	// OK is true when the output file exists at the end of the call. A build
	// may be OK and still carry Errors (engine warnings, missing fonts).
	OK bool
	// Errors holds diagnostics recorded during this call only.
	Errors Errors
	// Log is the captured console output of the final engine pass (or of the
	// post-process command).
	Log string
	// ExitCode of the captured invocation; -1 when it was interrupted.
	ExitCode int
	// Passes is the number of engine invocations started.
	Passes int
	// Output is the rendered file path when OK.
	Output string
	// Duration covers the whole call including cleanup.
	Duration time.Duration
}

func newResult() *Result {
	return &Result{Errors: Errors{}}
}
