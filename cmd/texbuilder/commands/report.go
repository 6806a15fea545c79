package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/document"
)

// printReport writes a human readable summary of r. Diagnostics are printed
// in key order; showLog adds the captured engine console output.
func printReport(out io.Writer, r *build.Report, showLog bool) {
	switch {
	case r.Skipped:
		fmt.Fprintf(out, "unchanged %s\n", r.Output)
		return
	case r.OK() && r.Build != nil:
		fmt.Fprintf(out, "built %s (%d passes, %s)\n", r.Output, r.Build.Passes, r.Duration.Round(time.Millisecond))
	case r.OK():
		fmt.Fprintf(out, "post-processed %s (%s)\n", r.Output, r.Duration.Round(time.Millisecond))
	default:
		fmt.Fprintf(out, "failed %s\n", r.Input)
	}

	diags := r.Diagnostics()
	for _, key := range diags.Keys() {
		fmt.Fprintf(out, "[%s]\n%s\n", key, indent(diags[key]))
	}
	if showLog {
		printLog(out, "engine log", r.Build)
		printLog(out, "post-process log", r.PostProcess)
	}
}

func printLog(out io.Writer, title string, res *document.Result) {
	if res == nil || res.Log == "" {
		return
	}
	fmt.Fprintf(out, "--- %s ---\n%s\n", title, res.Log)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
