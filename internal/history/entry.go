// Package history persists one row per build or post-process run so the CLI
// can list past results and skip rebuilding unchanged sources.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes engine builds from post-process runs.
type Kind string

const (
	KindBuild       Kind = "build"
	KindPostProcess Kind = "postprocess"
)

// Entry is one recorded run.
type Entry struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	Source      string            `json:"source"`
	Output      string            `json:"output,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	OK          bool              `json:"ok"`
	ExitCode    int               `json:"exit_code"`
	Errors      map[string]string `json:"errors,omitempty"`
	Log         string            `json:"log,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
}

// NewEntry returns an entry with a fresh ID and the given start time.
func NewEntry(kind Kind, source string, startedAt time.Time) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		StartedAt: startedAt,
	}
}
