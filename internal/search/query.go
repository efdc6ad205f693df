package search

import (
	"strconv"

	"github.com/aleister1102/marketwatch/internal/config"
)

// Query is one marketplace search request, watcher criteria merged with the
// process-wide defaults.
type Query struct {
	Text        string
	MinPrice    *int64
	MaxPrice    *int64
	Limit       int
	Sort        string
	ListingType string
	Status      string
	Geolocation int
	Include     string
}

// NewQuery builds a query for text using the configured defaults.
func NewQuery(text string, cfg config.SearchConfig) Query {
	q := Query{
		Text:        text,
		Limit:       cfg.Limit,
		Sort:        cfg.Sort,
		ListingType: cfg.ListingType,
		Status:      cfg.Status,
		Geolocation: cfg.Geolocation,
	}
	if cfg.IncludeShipping {
		q.Include = cfg.Include
	}
	return q
}

// PriceRange renders the price bounds as "min-max"; an open side is left empty.
// It returns "" when the query is unbounded.
func (q Query) PriceRange() string {
	if q.MinPrice == nil && q.MaxPrice == nil {
		return ""
	}
	var lo, hi string
	if q.MinPrice != nil {
		lo = strconv.FormatInt(*q.MinPrice, 10)
	}
	if q.MaxPrice != nil {
		hi = strconv.FormatInt(*q.MaxPrice, 10)
	}
	return lo + "-" + hi
}

// InPriceRange reports whether value satisfies the query bounds.
func (q Query) InPriceRange(value int64) bool {
	if q.MinPrice != nil && value < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && value > *q.MaxPrice {
		return false
	}
	return true
}
