package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/texbuilder/internal/retry"
)

const connectTimeout = 2 * time.Second

// NATSPublisher publishes JSON events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	retry   retry.Policy
}

// NATSOption customizes a NATSPublisher.
type NATSOption func(*NATSPublisher)

// WithRetry sets the policy applied to failed publish attempts.
func WithRetry(p retry.Policy) NATSOption {
	return func(n *NATSPublisher) { n.retry = p }
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string, opts ...NATSOption) (*NATSPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}

	conn, err := nats.Connect(url, nats.Name("texbuilder"), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, subject: subject, retry: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(p)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject, "max_retries", p.retry.MaxRetries)
	return p, nil
}

// Publish sends e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e *Event) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}

	attempt := 0
	err = p.retry.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			slog.Debug("Retrying build event publish", "subject", p.subject, "attempt", attempt)
		}
		return p.publishOnce(ctx, data)
	})
	if err != nil {
		return err
	}

	slog.Debug("Published build event", "subject", p.subject, "source", e.Source, "ok", e.OK)
	return nil
}

func (p *NATSPublisher) publishOnce(ctx context.Context, data []byte) error {
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
