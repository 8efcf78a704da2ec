package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "marketplace", cfg.Database.Database)
	assert.Equal(t, "mock", cfg.Esign.Provider)
	assert.Equal(t, 15*time.Second, cfg.Esign.CallTimeout)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("ESIGN_PROVIDER", "signit")
	t.Setenv("ESIGN_WEBHOOK_SECRET", "wh-secret")
	t.Setenv("ESIGN_CALL_TIMEOUT_SECONDS", "5")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "signit", cfg.Esign.Provider)
	assert.Equal(t, "wh-secret", cfg.Esign.WebhookSecret)
	assert.Equal(t, 5*time.Second, cfg.Esign.CallTimeout)
	assert.Equal(t, "localhost:2525", cfg.SMTP.SMTPAddr())
	assert.True(t, cfg.OTEL.Enabled)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "marketplace",
		SSLMode:  "disable",
	}

	dsn := cfg.DatabaseDSN()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=marketplace sslmode=disable", dsn)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
