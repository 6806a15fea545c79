package history

import (
	"context"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// ErrNotFound is returned by Get and Latest when no entry matches.
var ErrNotFound = errors.NewError(errors.CategoryNotFound, "build history entry not found").Build()

// Store defines the interface for persisting and retrieving build history.
type Store interface {
	// Record persists an entry. Entries without an ID receive one.
	Record(ctx context.Context, e *Entry) error

	// Get returns the entry with the given ID.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns the newest entries first; limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// Latest returns the newest entry of any kind recorded for source.
	Latest(ctx context.Context, source string) (*Entry, error)

	// Close releases resources.
	Close() error
}

// NoopStore is used when history is disabled.
type NoopStore struct{}

func (NoopStore) Record(context.Context, *Entry) error { return nil }

func (NoopStore) Get(context.Context, string) (*Entry, error) { return nil, ErrNotFound }

func (NoopStore) List(context.Context, int) ([]*Entry, error) { return nil, nil }

func (NoopStore) Latest(context.Context, string) (*Entry, error) { return nil, ErrNotFound }

func (NoopStore) Close() error { return nil }
