package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    int
	lastQ    Query
	listings []models.Listing
	err      error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(_ context.Context, q Query) ([]models.Listing, error) {
	s.calls++
	s.lastQ = q
	return s.listings, s.err
}

func int64Ptr(v int64) *int64 { return &v }

func TestExecutor_RejectsInvertedPriceBounds(t *testing.T) {
	provider := &stubProvider{}
	executor := NewExecutor(provider, config.NewDefaultSearchConfig(), zerolog.Nop())

	_, err := executor.Execute(context.Background(), &models.Watcher{
		ID:       "w1",
		Query:    "macbook",
		MinPrice: int64Ptr(5000),
		MaxPrice: int64Ptr(1000),
	})

	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "min_price", validationErr.Field)
	assert.Zero(t, provider.calls)
}

func TestExecutor_RejectsEmptyQuery(t *testing.T) {
	provider := &stubProvider{}
	executor := NewExecutor(provider, config.NewDefaultSearchConfig(), zerolog.Nop())

	_, err := executor.Execute(context.Background(), &models.Watcher{ID: "w1", Query: "   "})

	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Zero(t, provider.calls)
}

func TestExecutor_WrapsProviderFailure(t *testing.T) {
	cause := errors.New("connection refused")
	provider := &stubProvider{err: cause}
	executor := NewExecutor(provider, config.NewDefaultSearchConfig(), zerolog.Nop())

	_, err := executor.Execute(context.Background(), &models.Watcher{ID: "w1", Query: "macbook"})

	var providerErr *common.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "stub", providerErr.Provider)
	assert.ErrorIs(t, err, cause)
}

func TestExecutor_MergesDefaultsAndFiltersPrice(t *testing.T) {
	provider := &stubProvider{listings: []models.Listing{
		{ID: "cheap", Price: models.Price{Value: 100}},
		{ID: "ok", Price: models.Price{Value: 1500}},
		{ID: "expensive", Price: models.Price{Value: 9000}},
	}}
	executor := NewExecutor(provider, config.NewDefaultSearchConfig(), zerolog.Nop())

	listings, err := executor.Execute(context.Background(), &models.Watcher{
		ID:       "w1",
		Query:    " macbook pro ",
		MinPrice: int64Ptr(1000),
		MaxPrice: int64Ptr(2000),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, models.ListingIDs(listings))
	assert.Equal(t, "macbook pro", provider.lastQ.Text)
	assert.Equal(t, 60, provider.lastQ.Limit)
	assert.Equal(t, "rel", provider.lastQ.Sort)
	assert.Equal(t, "s", provider.lastQ.ListingType)
	assert.Equal(t, "active", provider.lastQ.Status)
	assert.Equal(t, 3, provider.lastQ.Geolocation)
	assert.Equal(t, "extend_with_shipping", provider.lastQ.Include)
}

func TestQuery_PriceRange(t *testing.T) {
	assert.Equal(t, "", Query{}.PriceRange())
	assert.Equal(t, "100-", Query{MinPrice: int64Ptr(100)}.PriceRange())
	assert.Equal(t, "-900", Query{MaxPrice: int64Ptr(900)}.PriceRange())
	assert.Equal(t, "100-900", Query{MinPrice: int64Ptr(100), MaxPrice: int64Ptr(900)}.PriceRange())
}

func TestBlocketProvider_Search(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"ad_id":"1001","subject":"MacBook Pro 14","body":"Like new","price":{"value":15000,"suffix":" kr"},
			 "share_url":"https://www.blocket.se/annons/1001","images":[{"url":"https://img.test/1.jpg"}],
			 "list_time":"2024-05-01T10:00:00Z"},
			{"ad_id":1002,"subject":"MacBook Air","price":{"value":8000,"suffix":" kr"},"share_url":"https://www.blocket.se/annons/1002"},
			{"subject":"no id"}
		]}`))
	}))
	defer server.Close()

	cfg := config.NewDefaultSearchConfig()
	cfg.BaseURL = server.URL
	cfg.BearerToken = "secret"
	provider, err := NewBlocketProvider(cfg, zerolog.Nop())
	require.NoError(t, err)

	q := NewQuery("macbook", cfg)
	q.MaxPrice = int64Ptr(20000)
	listings, err := provider.Search(context.Background(), q)

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "1001", listings[0].ID)
	assert.Equal(t, "MacBook Pro 14", listings[0].Title)
	assert.Equal(t, "15000 kr", listings[0].Price.String())
	assert.Equal(t, "https://img.test/1.jpg", listings[0].ImageURL)
	assert.Equal(t, 2024, listings[0].ListedAt.Year())
	assert.Equal(t, "1002", listings[1].ID)
	assert.Empty(t, listings[1].ImageURL)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "macbook", gotQuery["q"])
	assert.Equal(t, "60", gotQuery["lim"])
	assert.Equal(t, "rel", gotQuery["sort"])
	assert.Equal(t, "s", gotQuery["st"])
	assert.Equal(t, "active", gotQuery["status"])
	assert.Equal(t, "3", gotQuery["gl"])
	assert.Equal(t, "extend_with_shipping", gotQuery["include"])
	assert.Equal(t, "-20000", gotQuery["price"])
}

func TestBlocketProvider_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.NewDefaultSearchConfig()
	cfg.BaseURL = server.URL
	provider, err := NewBlocketProvider(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = provider.Search(context.Background(), NewQuery("macbook", cfg))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBlocketProvider_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer server.Close()

	cfg := config.NewDefaultSearchConfig()
	cfg.BaseURL = server.URL
	provider, err := NewBlocketProvider(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = provider.Search(context.Background(), NewQuery("macbook", cfg))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json unmarshal")
}

func TestBlocketProvider_OversizedBodyIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "padding": "` + strings.Repeat("x", 4096) + `"}`))
	}))
	defer server.Close()

	cfg := config.NewDefaultSearchConfig()
	cfg.BaseURL = server.URL
	cfg.MaxResponseBytes = 1024
	provider, err := NewBlocketProvider(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = provider.Search(context.Background(), NewQuery("macbook", cfg))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")
}

func TestTruncateBody_KeepsRunesIntact(t *testing.T) {
	body := []byte(strings.Repeat("a", maxErrorBodyBytes-1) + "åäö")

	got := truncateBody(body)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxErrorBodyBytes-1)+"...", got)
	assert.Equal(t, "short", truncateBody([]byte("  short ")))
}
