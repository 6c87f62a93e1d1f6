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
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Order.Timeout)
	assert.Equal(t, "EUR", cfg.Order.Currency)
	assert.False(t, cfg.Order.AllowDeleteConfirmed)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval)
	assert.True(t, cfg.Payment.Offline)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ORDER_TIMEOUT=15m\nSTORAGE_DRIVER=memory\n"), 0o600))

	t.Setenv("ORDER_ALLOW_DELETE_CONFIRMED", "true")
	t.Setenv("DB_NAME", "cinema_test")
	t.Cleanup(func() {
		os.Unsetenv("ORDER_TIMEOUT")
		os.Unsetenv("STORAGE_DRIVER")
	})

	cfg, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Order.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.True(t, cfg.Order.AllowDeleteConfirmed)
	assert.Equal(t, "cinema_test", cfg.Postgres.Database().DBName)
}

func TestValidate(t *testing.T) {
	base, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	bad := base
	bad.Storage.Driver = "sqlite"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Order.Currency = "EURO"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Payment.OmisePublicKey = "pkey_test"
	assert.Error(t, bad.Validate())
}
