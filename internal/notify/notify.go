// Package notify publishes build results to other systems.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event describes one finished build or post-process run.
type Event struct {
	BuildID    string            `json:"build_id"`
	Kind       string            `json:"kind"`
	Source     string            `json:"source"`
	Output     string            `json:"output,omitempty"`
	OK         bool              `json:"ok"`
	Skipped    bool              `json:"skipped,omitempty"`
	ExitCode   int               `json:"exit_code"`
	Errors     map[string]string `json:"errors,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Encode marshals e, stamping the current time when Timestamp is unset.
func Encode(e *Event) ([]byte, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Publisher delivers events. Callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
	Close() error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
