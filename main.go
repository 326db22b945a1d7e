package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"marketglimpse_backend/config"
	"marketglimpse_backend/controllers"
	"marketglimpse_backend/logging"
	"marketglimpse_backend/routes"
	"marketglimpse_backend/scheduler"
	"marketglimpse_backend/services/alerts"
	"marketglimpse_backend/services/cache"
	"marketglimpse_backend/services/dedup"
	"marketglimpse_backend/services/finnhub"
	"marketglimpse_backend/services/mailer"
	"marketglimpse_backend/services/ratelimit"
	"marketglimpse_backend/services/store"
)

// dbReady tracks whether the alert store finished initializing. The /ready
// probe reads it while the store connects in the background.
var dbReady bool
var dbReadyMu sync.RWMutex

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info().Str("environment", cfg.Environment).Msg("MarketGlimpse backend starting")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(logger))

	// Health endpoints go up first so orchestrators see the service while the
	// store connects in the background.
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	var jobScheduler *scheduler.Scheduler
	var mongoClient *store.Client

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		mongoClient, err = store.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger)
		if err != nil {
			logger.Error().Err(err).Msg("alert store connection failed; running in limited mode")
			return
		}

		// Explicitly constructed, injected instances: the limiter, dedup and
		// cache stores are shared process-wide by handlers and the scheduled
		// job without hiding behind package globals.
		limiter := ratelimit.NewLimiter(500, cfg.RateLimitWindow)
		deduplicator := dedup.NewDeduplicator(dedup.DefaultMaxPending, dedup.DefaultSafetyTTL)
		caches := cache.NewTiered(cache.Options{
			Capacity:   cfg.CacheCapacity,
			QuoteTTL:   cfg.QuoteCacheTTL,
			NewsTTL:    cfg.NewsCacheTTL,
			ProfileTTL: cfg.ProfileCacheTTL,
		})

		finnhubClient := finnhub.NewClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, deduplicator, caches, logger)
		alertStore := store.NewAlertStore(mongoClient, logger)
		alertMailer := mailer.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, logger)
		engine := alerts.NewEngine(alertStore, finnhubClient, alertMailer, logger)

		routes.SetupRoutes(router, routes.Deps{
			Limiter:          limiter,
			RateLimitDefault: cfg.RateLimitDefault,
			JWTSecret:        cfg.JWTSecret,
			Alerts:           controllers.NewAlertController(alertStore, engine),
			Market:           controllers.NewMarketController(finnhubClient),
		})

		jobScheduler = scheduler.NewScheduler(engine, cfg.AlertCheckInterval, logger)
		jobScheduler.Start()

		dbReadyMu.Lock()
		dbReady = true
		dbReadyMu.Unlock()

		logger.Info().Msg("application fully initialized")
	}()

	gracefulShutdown(server, func() *scheduler.Scheduler { return jobScheduler }, func() *store.Client { return mongoClient }, logger)
}

// setupHealthEndpoints sets up liveness and readiness probes.
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MarketGlimpse Alerting API",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		dbReadyMu.RLock()
		ready := dbReady
		dbReadyMu.RUnlock()

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Alert store not connected",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger logs errors and slow requests, skipping health probes.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > time.Second {
			logger.Warn().
				Str("method", c.Request.Method).
				Str("path", path).
				Int("status", c.Writer.Status()).
				Dur("duration", duration).
				Msg("request")
		}
	}
}

// gracefulShutdown stops the scheduler, drains the server and closes the
// store on SIGINT/SIGTERM.
func gracefulShutdown(server *http.Server, getScheduler func() *scheduler.Scheduler, getClient func() *store.Client, logger zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	if s := getScheduler(); s != nil {
		s.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	if client := getClient(); client != nil {
		if err := client.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to close store connection")
		}
	}

	logger.Info().Msg("server shutdown completed")
}
