package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"marketglimpse_backend/services/finnhub"
)

// MarketController handles market data requests backed by the upstream
// provider through the cache/dedup stack.
type MarketController struct {
	client *finnhub.Client
}

// NewMarketController creates a new market data controller.
func NewMarketController(client *finnhub.Client) *MarketController {
	return &MarketController{client: client}
}

// GetQuote returns the live quote for a symbol.
// GET /api/v1/stocks/:symbol/quote
func (mc *MarketController) GetQuote(c *gin.Context) {
	symbol := finnhub.NormalizeSymbol(c.Param("symbol"))

	quote, err := mc.client.Quote(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, finnhub.ErrPriceUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No data available for symbol"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"symbol":        symbol,
			"current":       quote.Current,
			"high":          quote.High,
			"low":           quote.Low,
			"open":          quote.Open,
			"previousClose": quote.PreviousClose,
			"timestamp":     quote.Timestamp,
		},
	})
}

// GetCompanyProfile returns the company profile for a symbol.
// GET /api/v1/stocks/:symbol/profile
func (mc *MarketController) GetCompanyProfile(c *gin.Context) {
	symbol := finnhub.NormalizeSymbol(c.Param("symbol"))

	profile, err := mc.client.CompanyProfile(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	if profile.Name == "" && profile.Ticker == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// SearchStocks searches the provider for matching symbols.
// GET /api/v1/stocks/search?q=...
func (mc *MarketController) SearchStocks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	results, err := mc.client.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search stocks"})
		return
	}

	if len(results) > 15 {
		results = results[:15]
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetCompanyNews returns recent news for a symbol.
// GET /api/v1/stocks/:symbol/news?days=5
func (mc *MarketController) GetCompanyNews(c *gin.Context) {
	symbol := finnhub.NormalizeSymbol(c.Param("symbol"))
	days, err := strconv.Atoi(c.DefaultQuery("days", "5"))
	if err != nil || days <= 0 || days > 30 {
		days = 5
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	articles, err := mc.client.CompanyNews(c.Request.Context(), symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch news"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": articles})
}

// GetMarketNews returns general market news.
// GET /api/v1/market/news
func (mc *MarketController) GetMarketNews(c *gin.Context) {
	articles, err := mc.client.MarketNews(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch news"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": articles})
}
