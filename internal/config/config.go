package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the driver's own configuration, loaded from the
// environment (optionally via a ".env" file) rather than the teacher's
// encryption settings: conditional-compilation symbols, the cache's
// sqlite DSN, the emitted output directory, and the worker-pool size.
type Config struct {
	CondCompSymbols []string
	CacheDSN        string
	OutputDir       string
	Workers         int
}

// Load reads ".env" (ignoring its absence, mirroring the teacher's own
// best-effort godotenv.Load() in cmd/morfx/main.go) and then CS2LUA_*
// environment variables into a Config, applying the same defaults a bare
// invocation with no environment at all should use.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		CacheDSN:  envOr("CS2LUA_CACHE_DSN", filepath.Join(".cs2lua", "cache.db")),
		OutputDir: envOr("CS2LUA_OUTPUT_DIR", "."),
		Workers:   0, // 0 means internal/driver.Run defaults to runtime.NumCPU()
	}

	if syms := os.Getenv("CS2LUA_DEFINE"); syms != "" {
		cfg.CondCompSymbols = splitNonEmpty(syms, ",")
	}

	if workersStr := os.Getenv("CS2LUA_WORKERS"); workersStr != "" {
		if n, err := strconv.Atoi(workersStr); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	return cfg
}

// CondCompSymbolSet returns CondCompSymbols as the map[string]bool shape
// internal/driver.Unit and internal/emit.Context expect.
func (c *Config) CondCompSymbolSet() map[string]bool {
	set := make(map[string]bool, len(c.CondCompSymbols))
	for _, s := range c.CondCompSymbols {
		set[s] = true
	}
	return set
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
