package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings loaded from the environment.
type Config struct {
	Port        string
	Environment string

	LogLevel  string
	LogFormat string

	MongoURI string
	MongoDB  string

	FinnhubBaseURL string
	FinnhubAPIKey  string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	JWTSecret string

	AlertCheckInterval time.Duration
	RateLimitDefault   int
	RateLimitWindow    time.Duration

	QuoteCacheTTL   time.Duration
	NewsCacheTTL    time.Duration
	ProfileCacheTTL time.Duration
	CacheCapacity   int
}

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MongoURI: getEnv("MONGODB_URI", ""),
		MongoDB:  getEnv("MONGODB_DB", "marketglimpse"),

		FinnhubBaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "MarketGlimpse Alerts <alerts@marketglimpse.app>"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key"),

		AlertCheckInterval: getEnvDuration("ALERT_CHECK_INTERVAL", 15*time.Minute),
		RateLimitDefault:   getEnvInt("RATE_LIMIT_DEFAULT", 10),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		QuoteCacheTTL:   getEnvDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		NewsCacheTTL:    getEnvDuration("NEWS_CACHE_TTL", 15*time.Minute),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", time.Hour),
		CacheCapacity:   getEnvInt("CACHE_CAPACITY", 500),
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration gets a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
