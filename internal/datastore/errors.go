package datastore

import (
	"errors"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
)

// ErrWatcherExists is returned by Create when the ID is already taken.
var ErrWatcherExists = errors.New("watcher already exists")

func notFound(id string) error {
	return common.WrapErrorf(common.ErrNotFound, "watcher '%s'", id)
}

func validateNewWatcher(w *models.Watcher) error {
	if w == nil {
		return common.NewValidationError("watcher", nil, "watcher cannot be nil")
	}
	if w.ID == "" {
		return common.NewValidationError("id", w.ID, "watcher id cannot be empty")
	}
	if !w.Status.IsValid() {
		return common.NewValidationError("status", w.Status, "unknown watcher status")
	}
	return nil
}
