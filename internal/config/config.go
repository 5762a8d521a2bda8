package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

var ErrMissingCredentials = errors.New("pallapay api_key and secret_key are required when the gateway is enabled")

// Credentials identify the merchant to Pallapay. They are never logged.
type Credentials struct {
	APIKey    string
	SecretKey string
}

func (c Credentials) String() string {
	return "Credentials{APIKey:[redacted], SecretKey:[redacted]}"
}

func (c Credentials) GoString() string {
	return c.String()
}

// Gateway holds the options merchants set for the payment method.
type Gateway struct {
	Enabled     bool
	Title       string
	Description string
	Credentials Credentials
}

type Database struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	Schema   string
}

// DSN builds the pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.Username, d.Password, d.Host, d.Port, d.Name, d.Schema,
	)
}

// Config holds application configuration
type Config struct {
	ServiceName string
	Port        string
	Debug       bool

	Gateway Gateway

	PallapayBaseURL string
	PallapayTimeout time.Duration

	PublicBaseURL      string
	SuccessURLTemplate string
	FailedURLTemplate  string

	CORSAllowedOrigins []string
	OTELEndpoint       string

	Database Database

	UnpaidOrderTTL      time.Duration
	UnpaidSweepInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", "pallapay-bridge"),
		Port:        getEnv("PORT", "8080"),
		Gateway: Gateway{
			Title:       getEnv("PALLAPAY_TITLE", "Crypto Payment"),
			Description: getEnv("PALLAPAY_DESCRIPTION", "Pay using cryptocurrencies."),
			Credentials: Credentials{
				APIKey:    os.Getenv("PALLAPAY_API_KEY"),
				SecretKey: os.Getenv("PALLAPAY_SECRET_KEY"),
			},
		},
		PallapayBaseURL:    getEnv("PALLAPAY_BASE_URL", "https://app.pallapay.com"),
		PublicBaseURL:      strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		SuccessURLTemplate: getEnv("SUCCESS_URL_TEMPLATE", "http://localhost:8080/checkout/order-received/{order_id}"),
		FailedURLTemplate:  getEnv("FAILED_URL_TEMPLATE", "http://localhost:8080/cart?cancel_order={order_id}"),
		OTELEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Database: Database{
			Host:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
			Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
			Name:     getEnv("BLUEPRINT_DB_DATABASE", "pallapay"),
			Username: getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		},
	}

	var err error
	if cfg.Gateway.Enabled, err = getBool("PALLAPAY_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.PallapayTimeout, err = getDuration("PALLAPAY_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.UnpaidOrderTTL, err = getDuration("UNPAID_ORDER_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.UnpaidSweepInterval, err = getDuration("UNPAID_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the options the payment flows cannot run without.
func (c *Config) Validate() error {
	if c.Gateway.Enabled && (c.Gateway.Credentials.APIKey == "" || c.Gateway.Credentials.SecretKey == "") {
		return ErrMissingCredentials
	}
	if c.PallapayTimeout <= 0 {
		return fmt.Errorf("pallapay timeout must be positive, got %v", c.PallapayTimeout)
	}
	if c.UnpaidOrderTTL < 0 {
		return fmt.Errorf("unpaid order ttl must not be negative, got %v", c.UnpaidOrderTTL)
	}
	if c.UnpaidOrderTTL > 0 && c.UnpaidSweepInterval <= 0 {
		return fmt.Errorf("unpaid sweep interval must be positive, got %v", c.UnpaidSweepInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(value) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
