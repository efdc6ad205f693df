package models

import (
	"fmt"
	"time"
)

// Price is a listing price as reported by the marketplace.
type Price struct {
	Value  int64  `json:"value"`
	Suffix string `json:"suffix,omitempty"`
}

// String formats the price the way the marketplace displays it, e.g. "1500 kr".
func (p Price) String() string {
	return fmt.Sprintf("%d%s", p.Value, p.Suffix)
}

// Listing is one normalized marketplace item.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       Price     `json:"price"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Description string    `json:"description,omitempty"`
	ListedAt    time.Time `json:"listed_at,omitempty"`
}

// ListingIDs returns the identifiers of listings in order.
func ListingIDs(listings []Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
