package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marketglimpse_backend/services/cache"
	"marketglimpse_backend/services/dedup"
)

// ErrPriceUnavailable signals that the provider returned no usable price for
// a symbol. A current price of zero is the provider's sentinel for unknown
// symbols or unavailable quotes, never a real measurement.
var ErrPriceUnavailable = errors.New("price unavailable")

// Quote is the provider's quote payload.
type Quote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// CompanyProfile is the provider's company profile payload.
type CompanyProfile struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Industry string `json:"finnhubIndustry"`
	WebURL   string `json:"weburl"`
	Logo     string `json:"logo"`
}

// SearchResult is one symbol match from the provider's search endpoint.
type SearchResult struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

type searchResponse struct {
	Count  int            `json:"count"`
	Result []SearchResult `json:"result"`
}

// NewsArticle is one article from the provider's news endpoints.
type NewsArticle struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// Client talks to the upstream quote provider. Cached endpoints (search,
// profile, news) consult the tiered cache before the deduplicator; the quote
// endpoint is deliberately uncached so alert evaluation always sees live
// data, but still shares in-flight calls through the deduplicator.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	dedup   *dedup.Deduplicator
	caches  *cache.Tiered
	logger  zerolog.Logger
}

// NewClient creates a provider client.
func NewClient(baseURL, apiKey string, d *dedup.Deduplicator, caches *cache.Tiered, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		dedup:   d,
		caches:  caches,
		logger:  logger.With().Str("component", "finnhub").Logger(),
	}
}

// Quote fetches the latest quote for symbol. The result is never cached.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("quote: empty symbol")
	}

	body, err := c.fetchJSON(ctx, "/quote", map[string]string{"symbol": symbol})
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote fetch failed")
		return nil, ErrPriceUnavailable
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote decode failed")
		return nil, ErrPriceUnavailable
	}

	if quote.Current <= 0 {
		return nil, ErrPriceUnavailable
	}
	return &quote, nil
}

// CompanyProfile fetches the company profile for symbol via the profile cache.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("profile: empty symbol")
	}

	body, err := c.cachedJSON(ctx, c.caches.Profile, 0, "/stock/profile2", map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	var profile CompanyProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", symbol, err)
	}
	return &profile, nil
}

// Search looks up symbols matching query. Results ride the profile cache with
// a shorter TTL since search listings churn faster than fundamentals.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: empty query")
	}

	body, err := c.cachedJSON(ctx, c.caches.Profile, 30*time.Minute, "/search", map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Result, nil
}

// CompanyNews fetches news for symbol between from and to via the news cache.
func (c *Client) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsArticle, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("company news: empty symbol")
	}

	params := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	body, err := c.cachedJSON(ctx, c.caches.News, 0, "/company-news", params)
	if err != nil {
		return nil, err
	}

	var articles []NewsArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return nil, fmt.Errorf("decode company news for %s: %w", symbol, err)
	}
	return articles, nil
}

// MarketNews fetches general market news via the news cache.
func (c *Client) MarketNews(ctx context.Context) ([]NewsArticle, error) {
	body, err := c.cachedJSON(ctx, c.caches.News, 0, "/news", map[string]string{"category": "general"})
	if err != nil {
		return nil, err
	}

	var articles []NewsArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return nil, fmt.Errorf("decode market news: %w", err)
	}
	return articles, nil
}

// cachedJSON serves body bytes from the given cache class, filling misses
// through the deduplicated fetch path. The API token never enters cache keys.
func (c *Client) cachedJSON(ctx context.Context, store *cache.Cache, ttl time.Duration, endpoint string, params map[string]string) ([]byte, error) {
	key := dedup.RequestKey(endpoint, params)
	if cached, ok := store.Get(key); ok {
		return cached.([]byte), nil
	}

	body, err := c.fetchJSON(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	store.SetTTL(key, body, ttl)
	return body, nil
}

// fetchJSON performs a deduplicated GET against the provider and returns the
// raw body. Concurrent calls with the same endpoint and parameters collapse
// into one network request.
func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	key := dedup.RequestKey(endpoint, params)

	result, err := c.dedup.Do(ctx, key, func() (any, error) {
		return c.get(ctx, endpoint, params)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("token", c.apiKey)

	reqURL := c.baseURL + endpoint + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", endpoint, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}

// NormalizeSymbol uppercases and trims a ticker symbol so cache and
// deduplication keys are stable across call sites.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
