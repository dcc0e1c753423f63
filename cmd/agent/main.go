package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/api"
	"github.com/papaburgs/vigilant-umbrella/internal/config"
	"github.com/papaburgs/vigilant-umbrella/internal/fleet"
	"github.com/papaburgs/vigilant-umbrella/internal/gate"
	"github.com/papaburgs/vigilant-umbrella/internal/ledger"
	"github.com/papaburgs/vigilant-umbrella/internal/logging"
	"github.com/papaburgs/vigilant-umbrella/internal/strategy"
	"github.com/papaburgs/vigilant-umbrella/internal/token"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

func main() {
	logging.InitLogger()
	l := slog.With("function", "main")

	cfg := config.Load()
	g := gate.New(cfg.GateRate, cfg.GateBurst)

	tok, err := loadOrRegister(cfg, g)
	if err != nil {
		l.Error("no usable agent token", "error", err)
		os.Exit(1)
	}

	client := api.New(cfg.BaseURL, tok, g, cfg.MaxRetries)
	view := worldview.New(cfg.MarketMaxAge)

	decider, err := strategy.Select(cfg.Strategy)
	if err != nil {
		l.Error("unknown strategy", "strategy", cfg.Strategy, "error", err)
		os.Exit(1)
	}

	var book *ledger.Ledger
	if cfg.DBURL != "" {
		book, err = ledger.Connect(cfg.DBURL, cfg.DBToken)
		if err != nil {
			l.Error("failed to connect ledger, running without persistence", "error", err)
		} else {
			defer book.Close()
		}
	}

	warmStart(client, view, book, cfg)

	opts := fleet.Options{
		DegradedCooldown: cfg.DegradedCooldown,
		SnapshotInterval: cfg.SnapshotInterval,
	}
	if book != nil {
		opts.Ledger = book
	}
	sched := fleet.NewScheduler(client, view, decider, opts)

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := sched.Start(startCtx); err != nil {
		l.Error("could not start fleet", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	l.Info("shutting down", "signal", s.String())
	sched.Stop()
}

// loadOrRegister reads the agent token from disk, registering a fresh agent
// first when configured to and no token exists yet.
func loadOrRegister(cfg config.Config, g *gate.Gate) (string, error) {
	tok, err := token.Read(cfg.TokenPath)
	if err == nil {
		return tok, nil
	}
	if cfg.RegisterSymbol == "" {
		return "", err
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	slog.Info("registering new agent", "symbol", cfg.RegisterSymbol, "faction", cfg.RegisterFaction)
	client := api.New(cfg.BaseURL, "", g, cfg.MaxRetries)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := client.Register(ctx, cfg.RegisterSymbol, cfg.RegisterFaction)
	if err != nil {
		return "", err
	}
	if err := token.Write(cfg.TokenPath, res.Token); err != nil {
		return "", err
	}
	slog.Info("agent registered", "symbol", res.Agent.Symbol, "headquarters", res.Agent.Headquarters)
	return res.Token, nil
}

// warmStart fills the world view before any ship has to decide anything:
// the home system's waypoints from the API, and recent market prices from
// the ledger when one is connected.
func warmStart(client *api.Client, view *worldview.View, book *ledger.Ledger, cfg config.Config) {
	l := slog.With("function", "warmStart")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	agent, err := client.GetAgent(ctx)
	if err != nil {
		l.Error("could not load agent for warm start", "error", err)
		return
	}

	contracts, err := client.ListContracts(ctx)
	if err != nil {
		l.Error("could not list contracts", "error", err)
	} else {
		for _, c := range contracts {
			if c.Fulfilled {
				continue
			}
			l.Info("open contract", "id", c.ID, "type", c.Type,
				"accepted", c.Accepted, "deadline", c.Terms.Deadline,
				"payout", c.Terms.Payment.OnFulfilled)
		}
	}

	system := types.SystemOf(agent.Headquarters)
	waypoints, err := client.ListSystemWaypoints(ctx, system)
	if err != nil {
		l.Error("could not list home system waypoints", "system", system, "error", err)
	} else {
		now := time.Now()
		for _, w := range waypoints {
			view.ObserveWaypoint(w, now)
		}
		l.Info("home system charted", "system", system, "waypoints", len(waypoints))
	}

	if book == nil {
		return
	}
	obs, err := book.RecentMarkets(time.Now().Add(-cfg.MarketMaxAge))
	if err != nil {
		l.Error("could not load recent markets from ledger", "error", err)
		return
	}
	for _, o := range obs {
		view.ObserveMarket(o.Market, o.Seen)
	}
	l.Info("market memory restored", "markets", len(obs))
}
