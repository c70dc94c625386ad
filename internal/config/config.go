package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// WordPress connection
	WordPress WordPress `json:"wordpress"`

	// Local store
	StoreBackend string `json:"store_backend" validate:"oneof=file redis s3"`
	StoragePath  string `json:"storage_path"`

	// Redis configuration
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Cache
	CacheBackend string        `json:"cache_backend" validate:"oneof=memory redis"`
	CacheTTL     time.Duration `json:"cache_ttl"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2Prefix    string `json:"r2_prefix"`

	// Auto-sync
	AutoSyncInterval time.Duration `json:"autosync_interval"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// WordPress is the connection to the remote WordPress site. It is the only
// source of credentials in the application.
type WordPress struct {
	APIURL      string        `json:"api_url" validate:"required_if=Enabled true"`
	Username    string        `json:"username" validate:"required_if=Enabled true"`
	AppPassword string        `json:"-" validate:"required_if=Enabled true"`
	Enabled     bool          `json:"enabled"`
	Timeout     time.Duration `json:"timeout" validate:"gt=0"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		WordPress: WordPress{
			APIURL:      strings.TrimRight(getEnv("WP_API_URL", ""), "/"),
			Username:    getEnv("WP_USERNAME", ""),
			AppPassword: getEnv("WP_APP_PASSWORD", ""),
			Enabled:     getEnvAsBool("WP_ENABLED", false),
			Timeout:     getEnvAsDuration("WP_TIMEOUT", 15*time.Second),
		},

		StoreBackend: getEnv("STORE_BACKEND", "file"),
		StoragePath:  getEnv("STORAGE_PATH", "./data"),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "wpsync:"),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:     getEnvAsDuration("CACHE_TTL", 5*time.Minute),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "wpsync"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2Prefix:    getEnv("R2_PREFIX", "state/"),

		AutoSyncInterval: getEnvAsDuration("AUTOSYNC_INTERVAL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.WordPress.APIURL != "" {
		if err := v.Var(c.WordPress.APIURL, "url"); err != nil {
			return fmt.Errorf("config: WP_API_URL is not a valid URL: %q", c.WordPress.APIURL)
		}
	}
	if c.AutoSyncInterval <= 0 {
		return fmt.Errorf("config: AUTOSYNC_INTERVAL must be positive, got %s", c.AutoSyncInterval)
	}
	if c.Env == "production" && c.AdminAPIKey == "" {
		return fmt.Errorf("config: ADMIN_API_KEY is required in production")
	}
	if c.StoreBackend == "s3" && c.R2Bucket == "" {
		return fmt.Errorf("config: R2_BUCKET is required for the s3 store backend")
	}
	return nil
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
