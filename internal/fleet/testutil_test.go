package fleet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/api"
	"github.com/papaburgs/vigilant-umbrella/internal/strategy"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// fakeClock is a manually advanced clock. After-waiters fire when Advance
// moves time past their deadline.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	w := fakeWaiter{deadline: c.now.Add(d), ch: ch}
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, w)
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	var keep []fakeWaiter
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
		} else {
			keep = append(keep, w)
		}
	}
	c.waiters = keep
}

func (c *fakeClock) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// waitForSleeper blocks until the actor under test has parked on the clock.
func waitForSleeper(t *testing.T, c *fakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.waiting() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("actor never parked on the clock")
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeGateway records calls and plays back canned responses.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	ship      types.Ship
	ships     []types.Ship
	agent     types.Agent
	market    types.Market
	waypoints []types.Waypoint

	shipErr    error
	extractErr error
	extractRes api.ExtractResult
	sellRes    api.TradeResult
	buyRes     api.TradeResult
	navRes     api.NavigateResult
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) GetAgent(ctx context.Context) (types.Agent, error) {
	g.record("GetAgent")
	return g.agent, nil
}

func (g *fakeGateway) ListShips(ctx context.Context) ([]types.Ship, error) {
	g.record("ListShips")
	return g.ships, nil
}

func (g *fakeGateway) GetShip(ctx context.Context, symbol string) (types.Ship, error) {
	g.record("GetShip")
	return g.ship, g.shipErr
}

func (g *fakeGateway) Navigate(ctx context.Context, ship, waypoint string) (api.NavigateResult, error) {
	g.record("Navigate")
	return g.navRes, nil
}

func (g *fakeGateway) Dock(ctx context.Context, ship string) (types.ShipNav, error) {
	g.record("Dock")
	nav := g.ship.Nav
	nav.Status = types.NavDocked
	return nav, nil
}

func (g *fakeGateway) Orbit(ctx context.Context, ship string) (types.ShipNav, error) {
	g.record("Orbit")
	nav := g.ship.Nav
	nav.Status = types.NavInOrbit
	return nav, nil
}

func (g *fakeGateway) Extract(ctx context.Context, ship string) (api.ExtractResult, error) {
	g.record("Extract")
	return g.extractRes, g.extractErr
}

func (g *fakeGateway) Refuel(ctx context.Context, ship string) (api.RefuelResult, error) {
	g.record("Refuel")
	return api.RefuelResult{}, nil
}

func (g *fakeGateway) SellCargo(ctx context.Context, ship, good string, units int) (api.TradeResult, error) {
	g.record("Sell")
	return g.sellRes, nil
}

func (g *fakeGateway) BuyCargo(ctx context.Context, ship, good string, units int) (api.TradeResult, error) {
	g.record("Buy")
	return g.buyRes, nil
}

func (g *fakeGateway) GetMarket(ctx context.Context, system, waypoint string) (types.Market, error) {
	g.record("GetMarket")
	return g.market, nil
}

func (g *fakeGateway) GetWaypoint(ctx context.Context, system, waypoint string) (types.Waypoint, error) {
	g.record("GetWaypoint")
	return types.Waypoint{Symbol: waypoint}, nil
}

func (g *fakeGateway) ListSystemWaypoints(ctx context.Context, system string) ([]types.Waypoint, error) {
	g.record("ListSystemWaypoints")
	return g.waypoints, nil
}

// scriptDecider plays intents in order, then idles far in the future.
type scriptDecider struct {
	mu      sync.Mutex
	intents []strategy.Intent
}

func (d *scriptDecider) Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) strategy.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.intents) == 0 {
		return strategy.Idle(now.Add(24 * time.Hour))
	}
	i := d.intents[0]
	d.intents = d.intents[1:]
	return i
}

// fixedDecider always returns the same intent.
type fixedDecider struct {
	intent strategy.Intent
}

func (d *fixedDecider) Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) strategy.Intent {
	return d.intent
}

// memLedger records what the fleet wrote without a database.
type memLedger struct {
	mu        sync.Mutex
	trades    []types.Transaction
	markets   []types.Market
	snapshots []types.Agent
}

func (l *memLedger) RecordTrade(tx types.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, tx)
}

func (l *memLedger) RecordMarket(m types.Market, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markets = append(l.markets, m)
}

func (l *memLedger) RecordSnapshot(agent types.Agent, ships int, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, agent)
}
