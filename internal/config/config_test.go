package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
	assert.Equal(t, 180*time.Second, cfg.RoundDuration)
	assert.Equal(t, 30*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, 3, cfg.SettlementMaxAttempts)

	rate, err := cfg.HouseRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.10")))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ROUND_DURATION", "90s")
	t.Setenv("HOUSE_FEE_RATE", "0.05")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("POSTGRES_USER", "arena")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_DATABASE", "arena")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 90*time.Second, cfg.RoundDuration)
	assert.Equal(t, "postgres://arena:s3cret@db:5432/arena", cfg.PostgresDSN())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"fee of one", "HOUSE_FEE_RATE", "1"},
		{"negative fee", "HOUSE_FEE_RATE", "-0.1"},
		{"unknown backend", "LEDGER_BACKEND", "sqlite"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero attempts", "SETTLEMENT_MAX_ATTEMPTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresBackendNeedsDatabase(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "postgres")
	_, err := Load()
	assert.Error(t, err)
}
