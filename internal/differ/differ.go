package differ

import (
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

// DefaultCapacity bounds the number of listing IDs a marker remembers.
const DefaultCapacity = 200

// ListingDiffer compares the current search results of a watcher with the
// marker persisted after its previous run.
type ListingDiffer struct {
	capacity int
	logger   zerolog.Logger
}

// NewListingDiffer creates a differ keeping at most capacity IDs per marker.
// The marker always keeps every ID of the latest result set, even above capacity.
func NewListingDiffer(capacity int, logger zerolog.Logger) *ListingDiffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ListingDiffer{
		capacity: capacity,
		logger:   logger.With().Str("component", "ListingDiffer").Logger(),
	}
}

// Diff returns the listings of current not covered by prev, plus the marker to
// persist. A nil prev means the watcher never ran: the results become the
// baseline and nothing is reported as new. An empty first run still yields an
// empty marker, so listings appearing later are reported. Otherwise empty
// results leave the marker as is. Diff is pure and never mutates prev.
func (d *ListingDiffer) Diff(prev *models.Marker, current []models.Listing) ([]models.Listing, *models.Marker) {
	current = dedupeListings(current)
	if len(current) == 0 {
		if prev == nil {
			return nil, &models.Marker{IDs: []string{}}
		}
		return nil, prev
	}

	var newListings []models.Listing
	if prev != nil {
		known := make(map[string]struct{}, len(prev.IDs))
		for _, id := range prev.IDs {
			known[id] = struct{}{}
		}
		for _, l := range current {
			if _, seen := known[l.ID]; !seen {
				newListings = append(newListings, l)
			}
		}
	}

	updated := d.mergeMarker(prev, current)

	d.logger.Debug().
		Bool("baseline", prev == nil).
		Int("current", len(current)).
		Int("new", len(newListings)).
		Int("marker_size", updated.Len()).
		Msg("Diffed listings against marker")

	return newListings, updated
}

// mergeMarker puts the current IDs first, in result order, followed by the
// previously known IDs that dropped out of the results.
func (d *ListingDiffer) mergeMarker(prev *models.Marker, current []models.Listing) *models.Marker {
	limit := d.capacity
	if len(current) > limit {
		limit = len(current)
	}

	ids := make([]string, 0, limit)
	inCurrent := make(map[string]struct{}, len(current))
	for _, l := range current {
		ids = append(ids, l.ID)
		inCurrent[l.ID] = struct{}{}
	}

	if prev != nil {
		for _, id := range prev.IDs {
			if len(ids) >= limit {
				break
			}
			if _, dup := inCurrent[id]; dup {
				continue
			}
			ids = append(ids, id)
		}
	}

	return &models.Marker{IDs: ids}
}

// dedupeListings drops repeated IDs, keeping the first occurrence.
func dedupeListings(listings []models.Listing) []models.Listing {
	if len(listings) < 2 {
		return listings
	}
	seen := make(map[string]struct{}, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
