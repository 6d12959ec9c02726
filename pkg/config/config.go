package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/payschool/platform/pkg/billing"
	"github.com/payschool/platform/pkg/observability"
	"github.com/payschool/platform/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Identity provider and token configuration
	Identity IdentityConfig

	// Billing provider configuration
	Stripe billing.StripeConfig

	// Invoice line item policy
	Invoice billing.InvoicePolicy

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Origins allowed to call the API from a browser
	CORSOrigins []string
}

// IdentityConfig holds OIDC provider and session token settings
type IdentityConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string

	// RedirectURL is this service's OAuth callback endpoint
	RedirectURL string

	// FrontendCallbackURL receives the session token after login
	FrontendCallbackURL string

	JWTSecret string
	JWTTTL    time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Identity:      loadIdentityConfig(),
		Stripe:        loadStripeConfig(),
		Invoice:       loadInvoicePolicy(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PAYSCHOOL_HOST", "0.0.0.0"),
		Port:            getEnv("PAYSCHOOL_PORT", "8200"),
		ReadTimeout:     getEnvDuration("PAYSCHOOL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PAYSCHOOL_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("PAYSCHOOL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PAYSCHOOL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PAYSCHOOL_HEALTH_PORT", "9090"),
		CORSOrigins:     splitAndTrim(getEnv("PAYSCHOOL_CORS_ORIGINS", "http://localhost:3000")),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if driver := getEnv("PAYSCHOOL_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if dsn := getEnv("PAYSCHOOL_DB_DSN", ""); dsn != "" {
		cfg.DSN = dsn
	}
	if maxConns := getEnvInt("PAYSCHOOL_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if maxIdle := getEnvInt("PAYSCHOOL_DB_MAX_IDLE", 0); maxIdle > 0 {
		cfg.MaxIdle = maxIdle
	}
	if lifetime := getEnvDuration("PAYSCHOOL_DB_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.MaxLifetime = lifetime
	}

	return cfg
}

// loadIdentityConfig loads OIDC and session token configuration from environment
func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		Issuer:              getEnv("PAYSCHOOL_OIDC_ISSUER", "https://accounts.google.com"),
		ClientID:            getEnv("PAYSCHOOL_GOOGLE_CLIENT_ID", ""),
		ClientSecret:        getEnv("PAYSCHOOL_GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:         getEnv("PAYSCHOOL_OAUTH_REDIRECT_URL", "http://localhost:8200/auth/google/callback"),
		FrontendCallbackURL: getEnv("PAYSCHOOL_FRONTEND_CALLBACK_URL", "http://localhost:3000/callback"),
		JWTSecret:           getEnv("PAYSCHOOL_JWT_SECRET", ""),
		JWTTTL:              getEnvDuration("PAYSCHOOL_JWT_TTL", time.Hour),
	}
}

// loadStripeConfig loads billing provider configuration from environment
func loadStripeConfig() billing.StripeConfig {
	return billing.StripeConfig{
		APIKey:  getEnv("PAYSCHOOL_STRIPE_SECRET_KEY", ""),
		Timeout: getEnvDuration("PAYSCHOOL_STRIPE_TIMEOUT", 30*time.Second),
	}
}

// loadInvoicePolicy loads the invoice line item policy from environment
func loadInvoicePolicy() billing.InvoicePolicy {
	policy := billing.DefaultInvoicePolicy()
	if amount := getEnvInt64("PAYSCHOOL_INVOICE_AMOUNT_CENTS", 0); amount > 0 {
		policy.AmountCents = amount
	}
	if currency := getEnv("PAYSCHOOL_INVOICE_CURRENCY", ""); currency != "" {
		policy.Currency = strings.ToLower(currency)
	}
	if description := getEnv("PAYSCHOOL_INVOICE_DESCRIPTION", ""); description != "" {
		policy.Description = description
	}
	return policy
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("PAYSCHOOL_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PAYSCHOOL_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PAYSCHOOL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PAYSCHOOL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PAYSCHOOL_OTEL_SERVICE_NAME", "payschool-platform"),
		OTelServiceVersion: getEnv("PAYSCHOOL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PAYSCHOOL_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	// Validate identity config
	if c.Identity.ClientID == "" || c.Identity.ClientSecret == "" {
		return fmt.Errorf("google OAuth client id and secret are required")
	}
	if c.Identity.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Identity.JWTTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}

	if err := c.Stripe.Validate(); err != nil {
		return err
	}

	// Validate invoice policy
	if c.Invoice.AmountCents <= 0 {
		return fmt.Errorf("invoice amount must be positive")
	}
	if c.Invoice.Currency == "" {
		return fmt.Errorf("invoice currency is required")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// splitAndTrim splits a comma-separated list, dropping empty entries
func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
