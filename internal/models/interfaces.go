package models

import "context"

// WatcherRepository persists watchers. Every method returning a single watcher
// or mutating one fails with common.ErrNotFound when the ID does not exist.
type WatcherRepository interface {
	Create(ctx context.Context, w *Watcher) error
	GetByID(ctx context.Context, id string) (*Watcher, error)
	List(ctx context.Context) ([]Watcher, error)
	ListActive(ctx context.Context) ([]Watcher, error)

	// UpdateRunResult writes the bookkeeping fields only, as one atomic update.
	UpdateRunResult(ctx context.Context, id string, result RunResult) error
	UpdateStatus(ctx context.Context, id string, status WatcherStatus) error
	UpdateSchedule(ctx context.Context, id string, schedule string) error
	UpdateDefinition(ctx context.Context, id string, def WatcherDefinition) error
	Delete(ctx context.Context, id string) error

	Close() error
}
