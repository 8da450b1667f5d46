package cashcard

import (
	"os"
	"strconv"
)

// Config is a configuration for the cash card application
type Config struct {
	HTTPAddr string
	// Backend selects the repository: "pg" (default) or "mem" for local runs.
	Backend string
	// DSN is the postgres connection string, required for the pg backend.
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:     "localhost:9090",
		Backend:      "pg",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
}

// ConfigFromEnv builds a Config from the environment, falling back to the
// defaults for unset variables.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.Backend = getenv("REPO_BACKEND", cfg.Backend)
	cfg.DSN = getenv("DB_DSN", cfg.DSN)
	cfg.MaxOpenConns = getenvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = getenvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
