package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/httpclient"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	blocketProviderName = "blocket"
	maxErrorBodyBytes   = 512
)

// BlocketProvider queries a Blocket-style JSON search endpoint.
type BlocketProvider struct {
	baseURL     string
	bearerToken string
	userAgent   string
	maxBody     int64
	client      *http.Client
	logger      zerolog.Logger
}

// NewBlocketProvider creates a provider from the search configuration.
func NewBlocketProvider(cfg config.SearchConfig, logger zerolog.Logger) (*BlocketProvider, error) {
	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(cfg.Timeout()).
		WithUserAgent(cfg.UserAgent).
		WithProxy(cfg.Proxy).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build search http client: %w", err)
	}
	return NewBlocketProviderWithClient(cfg, client, logger), nil
}

// NewBlocketProviderWithClient creates a provider using a caller supplied client.
func NewBlocketProviderWithClient(cfg config.SearchConfig, client *http.Client, logger zerolog.Logger) *BlocketProvider {
	return &BlocketProvider{
		baseURL:     cfg.BaseURL,
		bearerToken: cfg.BearerToken,
		userAgent:   cfg.UserAgent,
		maxBody:     cfg.MaxResponseBytes,
		client:      client,
		logger:      logger.With().Str("component", "BlocketProvider").Logger(),
	}
}

func (p *BlocketProvider) Name() string {
	return blocketProviderName
}

// blocketResponse mirrors the top-level search response.
type blocketResponse struct {
	Data []blocketAd `json:"data"`
}

// blocketAd mirrors a single ad of the search response.
type blocketAd struct {
	AdID     flexibleID     `json:"ad_id"`
	Subject  string         `json:"subject"`
	Body     string         `json:"body"`
	Price    *blocketPrice  `json:"price"`
	ShareURL string         `json:"share_url"`
	Images   []blocketImage `json:"images"`
	ListTime string         `json:"list_time"`
}

type blocketPrice struct {
	Value  int64  `json:"value"`
	Suffix string `json:"suffix"`
}

type blocketImage struct {
	URL string `json:"url"`
}

// flexibleID accepts identifiers encoded either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ad_id: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// Search runs one request and converts the ads into listings. Ads without an
// identifier are dropped since they cannot be deduplicated.
func (p *BlocketProvider) Search(ctx context.Context, q Query) ([]models.Listing, error) {
	reqURL, err := p.buildURL(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if p.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.bearerToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readLimited(resp.Body, p.maxBody)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, truncateBody(body))
	}

	var apiResp blocketResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]models.Listing, 0, len(apiResp.Data))
	for _, ad := range apiResp.Data {
		if ad.AdID == "" {
			continue
		}
		listings = append(listings, toListing(ad))
	}

	p.logger.Debug().
		Str("query", q.Text).
		Int("listings", len(listings)).
		Msg("Search completed")

	return listings, nil
}

func (p *BlocketProvider) buildURL(q Query) (string, error) {
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	params := base.Query()
	params.Set("q", q.Text)
	if q.Limit > 0 {
		params.Set("lim", strconv.Itoa(q.Limit))
	}
	setIfNotEmpty(params, "sort", q.Sort)
	setIfNotEmpty(params, "st", q.ListingType)
	setIfNotEmpty(params, "status", q.Status)
	if q.Geolocation > 0 {
		params.Set("gl", strconv.Itoa(q.Geolocation))
	}
	setIfNotEmpty(params, "include", q.Include)
	setIfNotEmpty(params, "price", q.PriceRange())

	base.RawQuery = params.Encode()
	return base.String(), nil
}

func toListing(ad blocketAd) models.Listing {
	listing := models.Listing{
		ID:          string(ad.AdID),
		Title:       ad.Subject,
		URL:         ad.ShareURL,
		Description: ad.Body,
	}
	if ad.Price != nil {
		listing.Price = models.Price{Value: ad.Price.Value, Suffix: ad.Price.Suffix}
	}
	if len(ad.Images) > 0 {
		listing.ImageURL = ad.Images[0].URL
	}
	if ad.ListTime != "" {
		if t, err := time.Parse(time.RFC3339, ad.ListTime); err == nil {
			listing.ListedAt = t
		}
	}
	return listing
}

func setIfNotEmpty(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// readLimited reads at most limit bytes of r. A longer body is an error
// rather than a silently truncated document.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = config.DefaultSearchMaxResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}

// truncateBody shortens an error body to maxErrorBodyBytes without splitting
// a UTF-8 sequence.
func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBodyBytes {
		return s
	}
	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
