package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "clover-api", cfg.AppName)
	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.True(t, cfg.DatabaseMigrateOnStartup)
	assert.False(t, cfg.AllowUnversionedWrites)
	assert.Equal(t, 30, cfg.WriteRateLimit)
	assert.Equal(t, time.Minute, cfg.WriteRateWindow)
	assert.Equal(t, []string{"GET", "POST", "PUT"}, cfg.AllowMethodList())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOW_UNVERSIONED_WRITES", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.AllowUnversionedWrites)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokerList())
	assert.Equal(t, 30*time.Second, cfg.DatabaseConnMaxLifetime)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME=clover_test\nWRITE_RATE_LIMIT=0\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_NAME")
		os.Unsetenv("WRITE_RATE_LIMIT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "clover_test", cfg.DatabaseName)
	assert.Equal(t, 0, cfg.WriteRateLimit)
}

func TestLoad_ExplicitFalseOverridesDefault(t *testing.T) {
	t.Setenv("DB_MIGRATE_ON_STARTUP", "false")
	t.Setenv("OTLP_INSECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DatabaseMigrateOnStartup)
	assert.False(t, cfg.OTLPInsecure)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_DatabaseDSN(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "clover",
		DatabasePassword: "secret",
		DatabaseName:     "clover",
		DatabaseSSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=clover password=secret dbname=clover sslmode=disable", cfg.DatabaseDSN())
}
