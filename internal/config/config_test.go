package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.BaseURL != "https://api.spacetraders.io/v2" {
		t.Errorf("unexpected default base url: %s", c.BaseURL)
	}
	if c.GateRate != 2 || c.GateBurst != 30 {
		t.Errorf("unexpected gate defaults: %d/%d", c.GateRate, c.GateBurst)
	}
	if c.MarketMaxAge != 10*time.Minute {
		t.Errorf("unexpected market max age: %s", c.MarketMaxAge)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIGIL_GATE_RATE", "5")
	t.Setenv("VIGIL_MARKET_MAX_AGE", "30s")
	t.Setenv("VIGIL_STRATEGY", "mine")

	c := Load()
	if c.GateRate != 5 {
		t.Errorf("expected gate rate 5, got %d", c.GateRate)
	}
	if c.MarketMaxAge != 30*time.Second {
		t.Errorf("expected 30s market max age, got %s", c.MarketMaxAge)
	}
	if c.Strategy != "mine" {
		t.Errorf("expected mine strategy, got %s", c.Strategy)
	}
}

func TestLoadBadValueFallsBack(t *testing.T) {
	t.Setenv("VIGIL_GATE_BURST", "lots")
	c := Load()
	if c.GateBurst != 30 {
		t.Errorf("expected default burst on parse failure, got %d", c.GateBurst)
	}
}
