package search

import (
	"context"

	"github.com/aleister1102/marketwatch/internal/models"
)

// Provider performs a marketplace search. Implementations must be safe for
// concurrent use; every watcher tick calls Search from its own goroutine.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]models.Listing, error)
}
