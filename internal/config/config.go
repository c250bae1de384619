/**
 * @description
 * Configuration loader for the BlueWhale Terminal backend.
 * Reads environment variables, applies defaults and validates what the process cannot run without.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Only DATABASE_URL is fatal. Missing FMP / LLM keys degrade the features that need them.
 * - JWT_EXPIRES_IN accepts Go durations ("168h") and day counts ("7d").
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "bluewhale-super-secret-change-in-production"

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Market  MarketDataConfig
	Scraper ScraperConfig
	Jobs    JobsConfig
	LLM     LLMConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port      string
	Env       string // "development", "staging", "production" or "test"
	ClientURL string // allowed CORS origin
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret    string
	JWTExpiresIn time.Duration
	JWKSURL      string // optional external issuer
}

// MarketDataConfig holds financial-data provider endpoints and keys
type MarketDataConfig struct {
	FMPAPIKey      string
	FMPBaseURL     string
	YahooBaseURL   string
	ExchangeSuffix string
	RequestTimeout time.Duration
}

// ScraperConfig holds investor-relations scraping settings
type ScraperConfig struct {
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	UserAgent      string
}

// JobsConfig holds scheduler settings
type JobsConfig struct {
	SyncCron    string
	ScraperCron string
	Timezone    string
	SyncDelay   time.Duration
	RunTimeout  time.Duration
	LockTTL     time.Duration
}

// LLMConfig holds the language model provider settings
type LLMConfig struct {
	Provider        string // "anthropic" or "openai"
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (containers inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			Env:       getEnv("GO_ENV", "development"),
			ClientURL: getEnv("CLIENT_URL", "http://localhost:5173"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Auth: AuthConfig{
			JWTSecret:    sanitizeCredential(getEnv("JWT_SECRET", DefaultJWTSecret)),
			JWTExpiresIn: parseExpiry(getEnv("JWT_EXPIRES_IN", "7d"), 7*24*time.Hour),
			JWKSURL:      getEnv("AUTH_JWKS_URL", ""),
		},
		Market: MarketDataConfig{
			FMPAPIKey:      sanitizeCredential(getEnv("FMP_API_KEY", "")),
			FMPBaseURL:     getEnv("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
			YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			ExchangeSuffix: getEnv("EXCHANGE_SUFFIX", ".JO"),
			RequestTimeout: getEnvAsDuration("MARKET_TIMEOUT_MS", 15*time.Second),
		},
		Scraper: ScraperConfig{
			RequestDelay:   getEnvAsDuration("SCRAPER_DELAY_MS", 2*time.Second),
			RequestTimeout: getEnvAsDuration("SCRAPER_TIMEOUT_MS", 15*time.Second),
			UserAgent:      getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		},
		Jobs: JobsConfig{
			SyncCron:    getEnv("SYNC_CRON", "0 * * * *"),
			ScraperCron: getEnv("SCRAPER_CRON", "0 2 * * *"),
			Timezone:    getEnv("CRON_TIMEZONE", "Africa/Johannesburg"),
			SyncDelay:   getEnvAsDuration("SYNC_DELAY_MS", time.Second),
			RunTimeout:  time.Duration(getEnvAsInt("JOB_TIMEOUT_MINUTES", 120)) * time.Minute,
			LockTTL:     time.Duration(getEnvAsInt("JOB_LOCK_TTL_MINUTES", 180)) * time.Minute,
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
			AnthropicAPIKey: sanitizeCredential(getEnv("ANTHROPIC_API_KEY", "")),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			OpenAIAPIKey:    sanitizeCredential(getEnv("OPENAI_API_KEY", "")),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1/chat/completions"),
			OpenAIModel:     getEnv("OPENAI_MODEL", "anthropic/claude-sonnet-4"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.IsProduction() && cfg.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if cfg.LLM.Provider != "anthropic" && cfg.LLM.Provider != "openai" {
		return fmt.Errorf("LLM_PROVIDER must be \"anthropic\" or \"openai\", got %q", cfg.LLM.Provider)
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a millisecond count
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	ms := getEnvAsInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// parseExpiry accepts "7d" style day counts as well as time.ParseDuration input.
func parseExpiry(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}
