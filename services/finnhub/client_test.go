package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketglimpse_backend/services/cache"
	"marketglimpse_backend/services/dedup"
)

func newTestClient(srv *httptest.Server) *Client {
	caches := cache.NewTiered(cache.Options{Capacity: 100})
	return NewClient(srv.URL, "test-token", dedup.NewDeduplicator(100, 30*time.Second), caches, zerolog.Nop())
}

func TestQuoteReturnsCurrentPrice(t *testing.T) {
	var gotSymbol, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		gotToken = r.URL.Query().Get("token")
		w.Write([]byte(`{"c":152.30,"h":153.1,"l":150.2,"o":151.0,"pc":149.8,"t":1700000000}`))
	}))
	defer srv.Close()

	quote, err := newTestClient(srv).Quote(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, 152.30, quote.Current)
	assert.Equal(t, 149.8, quote.PreviousClose)
	assert.Equal(t, "AAPL", gotSymbol, "symbol should be normalized before use")
	assert.Equal(t, "test-token", gotToken)
}

func TestQuoteZeroPriceIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Quote(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestQuoteHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestQuoteIsNeverCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"c":100.0,"pc":99.0}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	for i := 0; i < 3; i++ {
		_, err := client.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), hits.Load(), "alert evaluation needs live data on every call")
}

func TestConcurrentQuotesCollapseIntoOneRequest(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"c":410.5,"pc":408.0}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, err := client.Quote(context.Background(), "MSFT")
			require.NoError(t, err)
			assert.Equal(t, 410.5, quote.Current)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), hits.Load(), "concurrent identical fetches should share one call")
}

func TestCompanyProfileIsCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"name":"Apple Inc","ticker":"AAPL","exchange":"NASDAQ"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	for i := 0; i < 3; i++ {
		profile, err := client.CompanyProfile(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc", profile.Name)
	}

	assert.Equal(t, int64(1), hits.Load())
}

func TestSearchDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"count":1,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"}]}`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv).Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)
}

func TestCompanyNewsUsesDateRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TSLA", r.URL.Query().Get("symbol"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		w.Write([]byte(`[{"id":1,"headline":"Deliveries up","source":"wire","datetime":1700000000,"url":"https://example.com"}]`))
	}))
	defer srv.Close()

	to := time.Now()
	articles, err := newTestClient(srv).CompanyNews(context.Background(), "TSLA", to.AddDate(0, 0, -5), to)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Deliveries up", articles[0].Headline)
}
