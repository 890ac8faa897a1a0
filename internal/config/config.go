package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Backend API
	BackendURL string `json:"backend_url"`

	// News provider
	NewsAPIKey   string        `json:"-"`
	NewsAPIURL   string        `json:"news_api_url"`
	NewsCountry  string        `json:"news_country"`
	NewsCacheTTL time.Duration `json:"news_cache_ttl"`

	// Session handling
	StatusCacheTTL time.Duration `json:"status_cache_ttl"`
	FlowTTL        time.Duration `json:"flow_ttl"`
	SessionFile    string        `json:"session_file"`
	CookieSecure   bool          `json:"cookie_secure"`

	// Redis configuration
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`

	// Storage
	ArchivePath string `json:"archive_path"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables and validates it.
// It exits the process when the configuration is invalid.
func Load() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// LoadFromEnv is Load without the exit.
func LoadFromEnv() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		BackendURL: getEnv("BACKEND_URL", "http://localhost:3000"),

		NewsAPIKey:   getEnv("NEWS_API_KEY", ""),
		NewsAPIURL:   getEnv("NEWS_API_URL", "https://newsapi.org/v2/top-headlines"),
		NewsCountry:  getEnv("NEWS_COUNTRY", "us"),
		NewsCacheTTL: getEnvAsDuration("NEWS_CACHE_TTL", 0),

		StatusCacheTTL: getEnvAsDuration("STATUS_CACHE_TTL", 0),
		FlowTTL:        getEnvAsDuration("FLOW_TTL", 15*time.Minute),
		SessionFile:    getEnv("SESSION_FILE", defaultSessionFile()),
		CookieSecure:   getEnvAsBool("COOKIE_SECURE", getEnv("APP_ENV", "") == "production"),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "noticias:"),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "noticias"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),

		ArchivePath: getEnv("ARCHIVE_PATH", "./data/archive"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.NewsCacheTTL < 0 || c.StatusCacheTTL < 0 || c.FlowTTL < 0 {
		return errors.New("cache TTLs must not be negative")
	}

	r2 := []string{c.R2Endpoint, c.R2AccessKey, c.R2SecretKey}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return errors.New("R2_ENDPOINT, R2_ACCESS_KEY and R2_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// R2Enabled reports whether archived articles should be uploaded.
func (c *Config) R2Enabled() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".noticias-session.json"
	}
	return filepath.Join(home, ".noticias", "session.json")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
