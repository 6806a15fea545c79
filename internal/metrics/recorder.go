package metrics

import "time"

// Outcome enumerates build and post-process result labels.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning" // output produced, diagnostics recorded
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Recorder defines observability hooks for engine passes, builds and post-processing.
type Recorder interface {
	ObservePassDuration(pass int, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	IncPostProcessOutcome(outcome Outcome)
	IncErrorKey(key string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(int, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)     {}
func (NoopRecorder) IncBuildOutcome(Outcome)                {}
func (NoopRecorder) IncPostProcessOutcome(Outcome)          {}
func (NoopRecorder) IncErrorKey(string)                     {}
