package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvStrictRefs, "")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, App{DBPath: "library.db", Addr: ":8080", LogLevel: "info"}, cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvDB, "/var/lib/library/catalog.db")
	t.Setenv(EnvAddr, "127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvStrictRefs, "true")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "/var/lib/library/catalog.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.StrictRefs)
}

func TestLoadFromEnvFile(t *testing.T) {
	// godotenv never overrides variables that exist, even empty ones, so these start unset.
	// t.Setenv restores the previous state once the test ends.
	t.Setenv(EnvDB, "")
	os.Unsetenv(EnvDB)
	t.Setenv(EnvStrictRefs, "")
	os.Unsetenv(EnvStrictRefs)
	t.Setenv(EnvAddr, ":7000")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LIBRARY_DB=from-file.db\nLIBRARY_ADDR=:1111\nLIBRARY_STRICT_REFS=1\n"), 0o644))

	cfg := Load(envFile)

	assert.Equal(t, "from-file.db", cfg.DBPath)
	assert.Equal(t, ":7000", cfg.Addr, "process environment wins")
	assert.True(t, cfg.StrictRefs)
}

func TestInvalidBoolFallsBack(t *testing.T) {
	t.Setenv(EnvStrictRefs, "maybe")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.False(t, cfg.StrictRefs)
	assert.Equal(t, slog.LevelInfo, App{LogLevel: "verbose"}.SlogLevel())
}
