package config

import "time"

// SearchConfig holds the process-wide marketplace query defaults. Every watcher
// query is merged with these values before hitting the search provider.
type SearchConfig struct {
	BaseURL         string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"required,url"`
	BearerToken     string `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`
	UserAgent       string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Proxy           string `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
	TimeoutSecs     int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
	Limit           int    `json:"limit,omitempty" yaml:"limit,omitempty" validate:"min=1,max=500"`
	Sort            string `json:"sort,omitempty" yaml:"sort,omitempty"`
	ListingType     string `json:"listing_type,omitempty" yaml:"listing_type,omitempty"`
	Status          string `json:"status,omitempty" yaml:"status,omitempty"`
	Geolocation     int    `json:"geolocation,omitempty" yaml:"geolocation,omitempty" validate:"min=0"`
	Include         string `json:"include,omitempty" yaml:"include,omitempty"`
	IncludeShipping bool   `json:"include_shipping" yaml:"include_shipping"`
	// SeenCapacity bounds the number of listing IDs remembered per watcher.
	SeenCapacity int `json:"seen_capacity,omitempty" yaml:"seen_capacity,omitempty" validate:"min=1"`
	// MaxResponseBytes caps how much of a provider response is read.
	MaxResponseBytes int64 `json:"max_response_bytes,omitempty" yaml:"max_response_bytes,omitempty" validate:"min=1024"`
}

// NewDefaultSearchConfig creates default search configuration
func NewDefaultSearchConfig() SearchConfig {
	return SearchConfig{
		BaseURL:          DefaultSearchBaseURL,
		UserAgent:        DefaultSearchUserAgent,
		TimeoutSecs:      DefaultSearchTimeoutSecs,
		Limit:            DefaultSearchLimit,
		Sort:             DefaultSearchSort,
		ListingType:      DefaultSearchListingType,
		Status:           DefaultSearchStatus,
		Geolocation:      DefaultSearchGeolocation,
		Include:          DefaultSearchInclude,
		IncludeShipping:  DefaultSearchIncludeShipping,
		SeenCapacity:     DefaultSearchSeenCapacity,
		MaxResponseBytes: DefaultSearchMaxResponseBytes,
	}
}

// Timeout returns the per-request provider timeout.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
