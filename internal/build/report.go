package build

import (
	stderrors "errors"
	"maps"
	"strings"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/document"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/markup"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
)

// Request describes one build.
type Request struct {
	// Input is the LaTeX or Markdown file to render.
	Input string
	// Output is where the PDF is written. Defaults to the input's base name
	// with a .pdf extension in the configured output directory, or next to
	// the input.
	Output string
	// Format overrides extension based detection.
	Format markup.Format
	// SourcePath keeps the generated source at this path instead of a
	// temporary file.
	SourcePath string
	// PostProcess overrides the configured post-process command. Set
	// NoPostProcess to disable it.
	PostProcess   string
	NoPostProcess bool
	// SkipUnchanged skips the engine when the last successful build of
	// Input had the same fingerprint and Output still exists.
	SkipUnchanged bool
}

// Report is the outcome of Service.Run. A failed build is reported here, not
// as an error.
type Report struct {
	BuildID     string
	Input       string
	Output      string
	Format      markup.Format
	Fingerprint string
	Skipped     bool
	Build       *document.Result
	PostProcess *document.Result
	Duration    time.Duration
}

// OK reports whether Output holds a fresh (or unchanged) rendering.
func (r *Report) OK() bool {
	switch {
	case r.Skipped:
		return true
	case r.Build != nil && !r.Build.OK:
		return false
	case r.PostProcess != nil:
		return r.PostProcess.OK
	default:
		return r.Build != nil
	}
}

// Diagnostics merges build and post-process errors, keyed like document.Errors.
func (r *Report) Diagnostics() document.Errors {
	out := document.Errors{}
	if r.Build != nil {
		maps.Copy(out, r.Build.Errors)
	}
	if r.PostProcess != nil {
		maps.Copy(out, r.PostProcess.Errors)
	}
	return out
}

// Outcome maps the report onto a metrics label.
func (r *Report) Outcome() metrics.Outcome {
	switch {
	case r.Skipped:
		return metrics.OutcomeSkipped
	case r.Build == nil || !r.Build.OK:
		return metrics.OutcomeFailed
	case !r.Build.Errors.Empty():
		return metrics.OutcomeWarning
	default:
		return metrics.OutcomeSuccess
	}
}

// Err converts a failed report into a classified error; it returns nil when OK.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	if r.PostProcess != nil && (r.Build == nil || r.Build.OK) {
		return errors.PostProcessError("post-processing failed").
			WithCause(stderrors.New(firstLine(r.PostProcess.Errors[document.KeyPostProcessor]))).
			WithContext("input", r.Input).
			WithContext("exit_code", r.PostProcess.ExitCode).
			Build()
	}

	b := errors.EngineError("document build failed").WithContext("input", r.Input)
	if r.Build != nil {
		b = b.WithContext("exit_code", r.Build.ExitCode)
		for _, key := range []document.ErrorKey{document.KeyEngine, document.KeyPDF} {
			if msg := r.Build.Errors[key]; msg != "" {
				b = b.WithCause(stderrors.New(firstLine(msg)))
				break
			}
		}
	}
	return b.Build()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
