package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the agent reads from the environment.
// The game publishes no hard numbers for retries or staleness, so all of
// these are tunable rather than constants.
type Config struct {
	BaseURL   string
	TokenPath string

	// Registration fallback when no token file exists yet.
	RegisterSymbol  string
	RegisterFaction string

	// Rate gate: steady per-second limit plus per-minute burst pool.
	GateRate  int
	GateBurst int

	// Per-action retry ceiling for transient failures.
	MaxRetries int

	// How old market data can be before the strategy ignores it.
	MarketMaxAge time.Duration

	// How long a misbehaving ship is skipped before another attempt.
	DegradedCooldown time.Duration

	// How often the ledger takes an agent/fleet snapshot.
	SnapshotInterval time.Duration

	// Strategy selection: "trade" or "mine".
	Strategy string

	// Optional ledger database; empty disables persistence.
	DBURL   string
	DBToken string
}

// Load reads a .env file if present, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("no .env file loaded", "error", err)
	}

	c := Config{
		BaseURL:          envString("VIGIL_API_URL", "https://api.spacetraders.io/v2"),
		TokenPath:        envString("VIGIL_TOKEN_PATH", "AGENT_TOKEN"),
		RegisterSymbol:   os.Getenv("VIGIL_REGISTER_SYMBOL"),
		RegisterFaction:  envString("VIGIL_REGISTER_FACTION", "COSMIC"),
		GateRate:         envInt("VIGIL_GATE_RATE", 2),
		GateBurst:        envInt("VIGIL_GATE_BURST", 30),
		MaxRetries:       envInt("VIGIL_MAX_RETRIES", 3),
		MarketMaxAge:     envDuration("VIGIL_MARKET_MAX_AGE", 10*time.Minute),
		DegradedCooldown: envDuration("VIGIL_DEGRADED_COOLDOWN", 5*time.Minute),
		SnapshotInterval: envDuration("VIGIL_SNAPSHOT_INTERVAL", 5*time.Minute),
		Strategy:         envString("VIGIL_STRATEGY", "trade"),
		DBURL:            os.Getenv("VIGIL_DB_URL"),
		DBToken:          os.Getenv("VIGIL_DB_AUTH_TOKEN"),
	}
	return c
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("error parsing env var, using default", "var", key, "default", def, "error", err)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Error("error parsing env var, using default", "var", key, "default", def, "error", err)
		return def
	}
	return d
}
