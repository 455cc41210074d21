// Package config loads runtime settings from the environment, optionally seeded from a .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDB         = "LIBRARY_DB"
	EnvAddr       = "LIBRARY_ADDR"
	EnvLogLevel   = "LIBRARY_LOG_LEVEL"
	EnvStrictRefs = "LIBRARY_STRICT_REFS"
)

type App struct {
	DBPath     string `env:"LIBRARY_DB" default:"library.db"`
	Addr       string `env:"LIBRARY_ADDR" default:":8080"`
	LogLevel   string `env:"LIBRARY_LOG_LEVEL" default:"info"`
	StrictRefs bool   `env:"LIBRARY_STRICT_REFS" default:"false"`
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) App {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read env file", "error", err)
	}

	return App{
		DBPath:     getenv(EnvDB, "library.db"),
		Addr:       getenv(EnvAddr, ":8080"),
		LogLevel:   getenv(EnvLogLevel, "info"),
		StrictRefs: getbool(EnvStrictRefs, false),
	}
}

// SlogLevel maps LogLevel onto slog levels; unknown values fall back to info.
func (a App) SlogLevel() slog.Level {
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean env value, using default", "key", k, "value", v)
		return def
	}
	return b
}
