package routes

import (
	"github.com/gin-gonic/gin"

	"marketglimpse_backend/controllers"
	"marketglimpse_backend/middleware"
	"marketglimpse_backend/services/ratelimit"
)

// Deps carries everything route registration needs.
type Deps struct {
	Limiter          *ratelimit.Limiter
	RateLimitDefault int
	JWTSecret        string
	Alerts           *controllers.AlertController
	Market           *controllers.MarketController
}

// SetupRoutes sets up all API routes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	api := router.Group("/api/v1")
	{
		// Market data routes: public, rate limited per route
		stocks := api.Group("/stocks")
		{
			stocks.GET("/search",
				middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("stocks/search")),
				deps.Market.SearchStocks)
			stocks.GET("/:symbol/quote",
				middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("stocks/quote")),
				deps.Market.GetQuote)
			stocks.GET("/:symbol/profile",
				middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("stocks/profile")),
				deps.Market.GetCompanyProfile)
			stocks.GET("/:symbol/news",
				middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("stocks/news")),
				deps.Market.GetCompanyNews)
		}

		market := api.Group("/market")
		{
			market.GET("/news",
				middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("market/news")),
				deps.Market.GetMarketNews)
		}

		// Alert routes: authenticated, rate limited per user
		alertRoutes := api.Group("/alerts")
		alertRoutes.Use(middleware.JWTAuth(deps.JWTSecret))
		alertRoutes.Use(middleware.RateLimit(deps.Limiter, deps.RateLimitDefault, middleware.RouteKey("alerts")))
		{
			alertRoutes.GET("", deps.Alerts.GetAlerts)
			alertRoutes.POST("", deps.Alerts.CreateAlert)
			alertRoutes.DELETE("/:id", deps.Alerts.DeleteAlert)
			alertRoutes.PATCH("/:id", deps.Alerts.ToggleAlert)
			alertRoutes.POST("/check", deps.Alerts.CheckAlerts)
		}
	}
}
