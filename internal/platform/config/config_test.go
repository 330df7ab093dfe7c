package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("REGISTRAR_PROGRAM_ID", "prog")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, LedgerMemory, cfg.Ledger.Backend)
		assert.Equal(t, 60*time.Second, cfg.Oracle.MaxAge)
		assert.Equal(t, "0.02", cfg.Oracle.MaxConfidenceRatio.String())
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.False(t, cfg.DevMode)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("REGISTRAR_PROGRAM_ID", "prog")
		t.Setenv("LEDGER_BACKEND", "POSTGRES")
		t.Setenv("DATABASE_URL", "postgres://localhost/registrar")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		t.Setenv("ORACLE_MAX_AGE", "30s")
		t.Setenv("DEV_MODE", "true")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, LedgerPostgres, cfg.Ledger.Backend)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 30*time.Second, cfg.Oracle.MaxAge)
		assert.True(t, cfg.DevMode)
	})

	t.Run("invalid values fail", func(t *testing.T) {
		t.Setenv("REGISTRAR_PROGRAM_ID", "prog")
		t.Setenv("ORACLE_CACHE_TTL", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "ORACLE_CACHE_TTL")
	})

	t.Run("postgres requires a database url", func(t *testing.T) {
		t.Setenv("REGISTRAR_PROGRAM_ID", "prog")
		t.Setenv("LEDGER_BACKEND", "postgres")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("program id is required", func(t *testing.T) {
		t.Setenv("REGISTRAR_PROGRAM_ID", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
