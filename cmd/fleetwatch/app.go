package main

import (
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/ledger"
)

// App holds the handlers for the fleet dashboard.
type App struct {
	ledger *ledger.Ledger
}

func NewApp(l *ledger.Ledger) *App {
	return &App{ledger: l}
}

// periodFor maps a query value to a lookback window, defaulting to one hour.
func periodFor(v string) time.Duration {
	switch v {
	case "24h":
		return 24 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}
