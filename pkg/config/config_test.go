package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payschool/platform/pkg/observability"
)

// setRequiredEnv sets the variables without which LoadConfig fails validation
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PAYSCHOOL_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("PAYSCHOOL_GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("PAYSCHOOL_JWT_SECRET", "test-secret")
	t.Setenv("PAYSCHOOL_STRIPE_SECRET_KEY", "sk_test_123")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8200", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)

	assert.Equal(t, "sqlite3", cfg.Storage.Driver)

	assert.Equal(t, "https://accounts.google.com", cfg.Identity.Issuer)
	assert.Equal(t, time.Hour, cfg.Identity.JWTTTL)
	assert.Equal(t, "http://localhost:3000/callback", cfg.Identity.FrontendCallbackURL)

	assert.EqualValues(t, 1000, cfg.Invoice.AmountCents)
	assert.Equal(t, "usd", cfg.Invoice.Currency)

	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYSCHOOL_PORT", "8300")
	t.Setenv("PAYSCHOOL_DB_DRIVER", "postgres")
	t.Setenv("PAYSCHOOL_DB_DSN", "postgres://localhost/payschool")
	t.Setenv("PAYSCHOOL_JWT_TTL", "30m")
	t.Setenv("PAYSCHOOL_INVOICE_AMOUNT_CENTS", "2500")
	t.Setenv("PAYSCHOOL_INVOICE_CURRENCY", "EUR")
	t.Setenv("PAYSCHOOL_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("PAYSCHOOL_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8300", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Identity.JWTTTL)
	assert.EqualValues(t, 2500, cfg.Invoice.AmountCents)
	assert.Equal(t, "eur", cfg.Invoice.Currency)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	t.Setenv("PAYSCHOOL_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("PAYSCHOOL_GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("PAYSCHOOL_STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYSCHOOL_JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoadConfigPortCollision(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYSCHOOL_PORT", "9090")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("bogus"))
}
