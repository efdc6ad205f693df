package search

import (
	"context"
	"strings"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

// Executor turns a watcher into a provider query and runs it.
type Executor struct {
	provider Provider
	defaults config.SearchConfig
	logger   zerolog.Logger
}

// NewExecutor creates an executor over provider using cfg as query defaults.
func NewExecutor(provider Provider, cfg config.SearchConfig, logger zerolog.Logger) *Executor {
	return &Executor{
		provider: provider,
		defaults: cfg,
		logger:   logger.With().Str("component", "QueryExecutor").Logger(),
	}
}

// Execute validates the watcher criteria, queries the provider and returns the
// listings within the price bounds. Validation failures are returned before any
// provider call; provider failures come back as *common.ProviderError.
func (e *Executor) Execute(ctx context.Context, w *models.Watcher) ([]models.Listing, error) {
	if err := ValidateCriteria(w.Query, w.MinPrice, w.MaxPrice); err != nil {
		return nil, err
	}

	q := NewQuery(strings.TrimSpace(w.Query), e.defaults)
	q.MinPrice = w.MinPrice
	q.MaxPrice = w.MaxPrice

	listings, err := e.provider.Search(ctx, q)
	if err != nil {
		e.logger.Warn().Err(err).Str("watcher_id", w.ID).Str("provider", e.provider.Name()).Msg("Search provider call failed")
		return nil, common.NewProviderError(e.provider.Name(), "search failed", err)
	}

	filtered := listings[:0:0]
	for _, l := range listings {
		if q.InPriceRange(l.Price.Value) {
			filtered = append(filtered, l)
		}
	}

	if dropped := len(listings) - len(filtered); dropped > 0 {
		e.logger.Debug().Str("watcher_id", w.ID).Int("dropped", dropped).Msg("Dropped listings outside price bounds")
	}

	return filtered, nil
}

// ValidateCriteria checks the user supplied search criteria of a watcher.
func ValidateCriteria(query string, minPrice, maxPrice *int64) error {
	if strings.TrimSpace(query) == "" {
		return common.NewValidationError("query", query, "query cannot be empty")
	}
	if minPrice != nil && *minPrice < 0 {
		return common.NewValidationError("min_price", *minPrice, "min price cannot be negative")
	}
	if maxPrice != nil && *maxPrice < 0 {
		return common.NewValidationError("max_price", *maxPrice, "max price cannot be negative")
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return common.NewValidationError("min_price", *minPrice, "min price cannot exceed max price")
	}
	return nil
}
