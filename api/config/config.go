package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds the global application configuration
var AppConfig *Config

// Config holds the application configuration
type Config struct {
	AppEnv      string
	DatabaseURL string
	// Optional: when empty the processed-event set is kept in memory.
	RedisURL string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePublishableKey string
	StripePriceID        string

	AuthTokenSecret string

	// Optional: base URL for running remote HTTP integration tests (e.g., https://api.example.com)
	IntegrationBaseURL string
	// Server ports
	HTTPPort string
	GRPCPort string

	LogLevel  string
	LogFormat string

	// Raw values of the typed settings below, as read from the environment.
	DBMaxOpenConnsRaw    string
	GatewayTimeoutRaw    string
	GatewayMaxRetriesRaw string
	WebhookTimeoutRaw    string
	EventRetentionRaw    string
	AutoMigrateRaw       string

	DBMaxOpenConns    int
	GatewayTimeout    time.Duration
	GatewayMaxRetries int64
	WebhookTimeout    time.Duration
	EventRetention    time.Duration
	AutoMigrate       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{}

	// Try to load .env file from current directory and parent directories
	currentDir, _ := os.Getwd()
	for currentDir != "/" && currentDir != "." {
		envPath := filepath.Join(currentDir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			err = godotenv.Load(envPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load .env file: %v", err)
			}
			break
		}
		currentDir = filepath.Dir(currentDir)
	}

	requiredVars := []struct {
		name     string
		envVar   string
		display  string
		required bool
	}{
		{"DatabaseURL", "DATABASE_URL", "Database URL", true},
		{"StripeSecretKey", "STRIPE_SECRET_KEY", "Stripe Secret Key", true},
		{"StripeWebhookSecret", "STRIPE_WEBHOOK_SECRET", "Stripe Webhook Secret", true},
		{"StripePriceID", "STRIPE_PRICE_ID", "Stripe Price ID", true},
		{"AuthTokenSecret", "AUTH_TOKEN_SECRET", "Auth Token Secret", true},
		{"StripePublishableKey", "STRIPE_PUBLISHABLE_KEY", "Stripe Publishable Key", false},
		{"RedisURL", "REDIS_URL", "Redis URL", false},
		{"AppEnv", "APP_ENV", "Application Environment", false},
		// Optional integration base URL for remote tests
		{"IntegrationBaseURL", "INTEGRATION_BASE_URL", "Integration Base URL", false},
		{"HTTPPort", "PORT", "HTTP Port", false},
		{"GRPCPort", "GRPC_PORT", "gRPC Port", false},
		{"LogLevel", "LOG_LEVEL", "Log Level", false},
		{"LogFormat", "LOG_FORMAT", "Log Format", false},
		{"DBMaxOpenConnsRaw", "DB_MAX_OPEN_CONNS", "Database Max Open Connections", false},
		{"GatewayTimeoutRaw", "GATEWAY_TIMEOUT", "Gateway Timeout", false},
		{"GatewayMaxRetriesRaw", "GATEWAY_MAX_RETRIES", "Gateway Max Retries", false},
		{"WebhookTimeoutRaw", "WEBHOOK_TIMEOUT", "Webhook Timeout", false},
		{"EventRetentionRaw", "EVENT_RETENTION", "Processed Event Retention", false},
		{"AutoMigrateRaw", "AUTO_MIGRATE", "Auto Migrate", false},
	}

	for _, v := range requiredVars {
		value := strings.TrimSpace(os.Getenv(v.envVar))
		if v.required && value == "" {
			return nil, fmt.Errorf("missing required environment variable: %s", v.display)
		}
		configField := reflect.ValueOf(config).Elem().FieldByName(v.name)
		configField.SetString(value)
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills optional settings and parses the typed ones.
func (c *Config) applyDefaults() error {
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	if c.HTTPPort == "" {
		c.HTTPPort = "8080"
	}
	if c.GRPCPort == "" {
		c.GRPCPort = "50051"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	var err error
	if c.DBMaxOpenConns, err = parseInt(c.DBMaxOpenConnsRaw, DefaultDBMaxOpenConns); err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	retries, err := parseInt(c.GatewayMaxRetriesRaw, DefaultGatewayMaxRetries)
	if err != nil {
		return fmt.Errorf("invalid GATEWAY_MAX_RETRIES: %w", err)
	}
	c.GatewayMaxRetries = int64(retries)
	if c.GatewayTimeout, err = parseDuration(c.GatewayTimeoutRaw, DefaultGatewayTimeout); err != nil {
		return fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
	}
	if c.WebhookTimeout, err = parseDuration(c.WebhookTimeoutRaw, DefaultWebhookTimeout); err != nil {
		return fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}
	if c.EventRetention, err = parseDuration(c.EventRetentionRaw, DefaultEventRetention); err != nil {
		return fmt.Errorf("invalid EVENT_RETENTION: %w", err)
	}
	if c.AutoMigrateRaw != "" {
		if c.AutoMigrate, err = strconv.ParseBool(c.AutoMigrateRaw); err != nil {
			return fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
		}
	}
	return nil
}

// IsProduction reports whether the service runs against live gateway credentials.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func parseInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
