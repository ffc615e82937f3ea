package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the newscope server.
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Classifier ClassifierConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	LogLevel        string
	RateLimitPerMin int
	BatchOutputDir  string
}

// AuthConfig carries the static shared secret for the prediction
// endpoints. An empty APIKey disables the check entirely.
type AuthConfig struct {
	APIKey string
}

type CacheConfig struct {
	URL      string
	TTL      time.Duration
	PoolSize int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	MinConns int
	MaxConns int
}

// URL renders the pool config as a postgres:// connection string.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type ClassifierConfig struct {
	Backend      string // "remote" or "mock"
	BaseURL      string
	Timeout      time.Duration
	Device       string
	ModelVersion string
}

var validBackends = map[string]bool{
	"remote": true,
	"mock":   true,
}

// Load reads configuration from environment variables (and a .env file
// when present) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            envString("API_HOST", "0.0.0.0"),
			Port:            envInt("API_PORT", 8000),
			LogLevel:        envString("LOG_LEVEL", "info"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
			BatchOutputDir:  envString("BATCH_OUTPUT_DIR", "."),
		},
		Auth: AuthConfig{
			APIKey: os.Getenv("API_KEY"),
		},
		Cache: CacheConfig{
			URL:      envString("REDIS_URL", "redis://localhost:6379"),
			TTL:      envDurationSecs("CACHE_TTL", time.Hour),
			PoolSize: envInt("REDIS_POOL_SIZE", 10),
		},
		Database: DatabaseConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Database: envString("POSTGRES_DB", "news_classifier"),
			User:     envString("POSTGRES_USER", "postgres"),
			Password: envString("POSTGRES_PASSWORD", "postgres"),
			MinConns: envInt("POSTGRES_MIN_CONNS", 2),
			MaxConns: envInt("POSTGRES_MAX_CONNS", 10),
		},
		Classifier: ClassifierConfig{
			Backend:      envString("CLASSIFIER_BACKEND", "remote"),
			BaseURL:      os.Getenv("CLASSIFIER_URL"),
			Timeout:      envDurationSecs("CLASSIFIER_TIMEOUT_SECS", 30*time.Second),
			Device:       envString("DEVICE", "cpu"),
			ModelVersion: envString("MODEL_VERSION", "distilbert-news-v2"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("API_PORT must be in 1..65535, got %d", c.Server.Port)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if !validBackends[c.Classifier.Backend] {
		return fmt.Errorf("CLASSIFIER_BACKEND must be one of remote, mock; got %q", c.Classifier.Backend)
	}
	if c.Classifier.Backend == "remote" {
		if c.Classifier.BaseURL == "" {
			return fmt.Errorf("CLASSIFIER_URL is required when CLASSIFIER_BACKEND is remote")
		}
		if !strings.HasPrefix(c.Classifier.BaseURL, "http://") && !strings.HasPrefix(c.Classifier.BaseURL, "https://") {
			return fmt.Errorf("CLASSIFIER_URL must start with http:// or https://, got %q", c.Classifier.BaseURL)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
