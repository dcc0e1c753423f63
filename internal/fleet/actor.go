package fleet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/api"
	"github.com/papaburgs/vigilant-umbrella/internal/strategy"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// actionTimeout bounds one API action including its time queued at the gate.
const actionTimeout = 2 * time.Minute

// parkDelay is how long an actor sits out after a transient failure
// exhausted its retries.
const parkDelay = 30 * time.Second

// degradedThreshold is how many consecutive not-found/malformed responses
// mark a ship degraded.
const degradedThreshold = 3

// Actor owns one ship. It is the only writer to that ship's state, advances
// it one action at a time, and never has two calls in flight. Waiting out
// travel or cooldown happens on a timer without touching the API.
type Actor struct {
	ship    types.Ship
	gw      Gateway
	view    *worldview.View
	decider strategy.Decider
	book    *AgentBook
	clock   Clock
	ledger  Recorder // may be nil
	log     *slog.Logger

	degradedCooldown time.Duration
	notFoundStreak   int

	// chartedSystem is the last system whose waypoints were loaded into the
	// view on this ship's behalf.
	chartedSystem string
	// gone flips when the server no longer knows the ship (sold or lost);
	// Run exits and the scheduler drops the ship.
	gone bool
}

func NewActor(ship types.Ship, gw Gateway, view *worldview.View, decider strategy.Decider, book *AgentBook, clock Clock, ledger Recorder, degradedCooldown time.Duration) *Actor {
	return &Actor{
		ship:             ship,
		gw:               gw,
		view:             view,
		decider:          decider,
		book:             book,
		clock:            clock,
		ledger:           ledger,
		log:              slog.With("ship", ship.Symbol),
		degradedCooldown: degradedCooldown,
	}
}

// Ship returns the actor's picture of its ship. The actor is the only
// writer, so this is only safe once Run has returned.
func (a *Actor) Ship() types.Ship { return a.ship }

// Run drives the ship until stop closes. Each iteration performs at most one
// decision cycle; the current action always finishes before the actor exits.
func (a *Actor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		a.step(stop)
		if a.gone {
			return
		}
	}
}

// step waits out any running timer, asks the policy for an intent, and
// executes it.
func (a *Actor) step(stop <-chan struct{}) {
	now := a.clock.Now()

	if !a.ship.InTransitAt(now) {
		a.chartSystem()
	}

	intent := a.decider.Decide(a.ship, a.view, a.book.Get(), now)
	a.log.Debug("decided", "intent", intent.String())

	if intent.Kind == strategy.KindIdle {
		a.sleepUntil(intent.Until, stop)
		return
	}

	// The state machine never lets a queued intent jump a timer: anything
	// decided against stale time information waits instead of reaching the
	// gateway.
	if a.ship.InTransitAt(now) {
		a.sleepUntil(a.ship.Nav.Route.Arrival, stop)
		return
	}
	if intent.Kind == strategy.KindExtract && a.ship.OnCooldown(now) {
		a.sleepUntil(a.ship.Cooldown.Expiration, stop)
		return
	}

	if err := a.execute(intent); err != nil {
		a.handleError(err, intent, stop)
		return
	}
	a.notFoundStreak = 0
}

// chartSystem loads the ship's current system into the view when nothing is
// known about it yet, so the policy always has waypoints to work with. A
// system is charted at most once per ship.
func (a *Actor) chartSystem() {
	system := a.ship.Nav.SystemSymbol
	if system == "" || system == a.chartedSystem {
		return
	}
	if len(a.view.Waypoints(system)) > 0 {
		a.chartedSystem = system
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	waypoints, err := a.gw.ListSystemWaypoints(ctx, system)
	if err != nil {
		a.log.Warn("could not chart current system", "system", system, "error", err)
		return
	}
	now := a.clock.Now()
	for _, w := range waypoints {
		a.view.ObserveWaypoint(w, now)
	}
	a.chartedSystem = system
	a.log.Info("charted current system", "system", system, "waypoints", len(waypoints))
}

// execute resolves one intent into at most one primitive API action. When an
// intent needs a different nav state first (orbit before navigate, dock
// before trading), the prerequisite is this cycle's action and the decision
// loop will re-issue the intent next cycle.
func (a *Actor) execute(intent strategy.Intent) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch intent.Kind {
	case strategy.KindNavigate, strategy.KindExtract:
		if a.ship.Nav.Status == types.NavDocked {
			return a.doOrbit(ctx)
		}
	case strategy.KindSell, strategy.KindBuy, strategy.KindRefuel:
		if a.ship.Nav.Status == types.NavInOrbit {
			return a.doDock(ctx)
		}
	}

	switch intent.Kind {
	case strategy.KindNavigate:
		return a.doNavigate(ctx, intent.Waypoint)
	case strategy.KindDock:
		return a.doDock(ctx)
	case strategy.KindOrbit:
		return a.doOrbit(ctx)
	case strategy.KindExtract:
		return a.doExtract(ctx)
	case strategy.KindRefuel:
		return a.doRefuel(ctx)
	case strategy.KindSell:
		return a.doTrade(ctx, intent, false)
	case strategy.KindBuy:
		return a.doTrade(ctx, intent, true)
	}
	return nil
}

func (a *Actor) doNavigate(ctx context.Context, waypoint string) error {
	res, err := a.gw.Navigate(ctx, a.ship.Symbol, waypoint)
	if err != nil {
		return err
	}
	a.ship.Nav = res.Nav
	a.ship.Fuel = res.Fuel
	a.log.Info("navigating", "to", waypoint, "arrival", res.Nav.Route.Arrival)
	return nil
}

func (a *Actor) doOrbit(ctx context.Context) error {
	nav, err := a.gw.Orbit(ctx, a.ship.Symbol)
	if err != nil {
		return err
	}
	a.ship.Nav = nav
	return nil
}

// doDock docks and, when the waypoint hosts a market, prices it while we are
// here. Every docking refreshes the shared view for free.
func (a *Actor) doDock(ctx context.Context) error {
	nav, err := a.gw.Dock(ctx, a.ship.Symbol)
	if err != nil {
		return err
	}
	a.ship.Nav = nav
	a.observeLocalMarket(ctx)
	return nil
}

func (a *Actor) observeLocalMarket(ctx context.Context) {
	symbol := a.ship.Nav.WaypointSymbol
	if e, known := a.view.Lookup(symbol); known && !e.Waypoint.HasMarket() {
		return
	}
	m, err := a.gw.GetMarket(ctx, a.ship.Nav.SystemSymbol, symbol)
	if err != nil {
		a.log.Debug("could not price local market", "waypoint", symbol, "error", err)
		return
	}
	now := a.clock.Now()
	a.view.ObserveMarket(m, now)
	if a.ledger != nil {
		a.ledger.RecordMarket(m, now)
	}
}

func (a *Actor) doExtract(ctx context.Context) error {
	res, err := a.gw.Extract(ctx, a.ship.Symbol)
	if err != nil {
		return err
	}
	a.ship.Cargo = res.Cargo
	a.ship.Cooldown = res.Cooldown
	a.log.Info("extracted", "yield", res.Extraction.Yield.Symbol, "units", res.Extraction.Yield.Units,
		"cooldown", res.Cooldown.Expiration)
	return nil
}

func (a *Actor) doRefuel(ctx context.Context) error {
	res, err := a.gw.Refuel(ctx, a.ship.Symbol)
	if err != nil {
		return err
	}
	a.ship.Fuel = res.Fuel
	a.book.Update(res.Agent)
	if a.ledger != nil {
		a.ledger.RecordTrade(res.Transaction)
	}
	a.log.Info("refuelled", "fuel", res.Fuel.Current, "cost", res.Transaction.TotalPrice)
	return nil
}

func (a *Actor) doTrade(ctx context.Context, intent strategy.Intent, buy bool) error {
	var res api.TradeResult
	var err error
	if buy {
		res, err = a.gw.BuyCargo(ctx, a.ship.Symbol, intent.Good, intent.Units)
	} else {
		res, err = a.gw.SellCargo(ctx, a.ship.Symbol, intent.Good, intent.Units)
	}
	if err != nil {
		return err
	}
	a.ship.Cargo = res.Cargo
	a.book.Update(res.Agent)
	if a.ledger != nil {
		a.ledger.RecordTrade(res.Transaction)
	}
	a.log.Info("traded", "action", intent.Kind.String(), "good", intent.Good,
		"units", res.Transaction.Units, "total", res.Transaction.TotalPrice,
		"credits", res.Agent.Credits)

	// the transaction moved the price; re-observe rather than trust old data
	a.observeLocalMarket(ctx)
	return nil
}

// handleError sorts a failed action into the error taxonomy. Nothing here is
// fatal: the worst case parks the ship for a while.
func (a *Actor) handleError(err error, intent strategy.Intent, stop <-chan struct{}) {
	switch {
	case api.StaleState(err):
		a.log.Debug("state rejected by server, refreshing", "intent", intent.String(), "error", err)
		a.refreshShip()
	case api.PolicyOutcome(err):
		a.log.Debug("action not possible, re-deciding", "intent", intent.String(), "error", err)
		a.refreshShip()
		a.refreshAgent()
	case api.Retryable(err):
		// the client already retried with backoff; abandon this cycle
		a.log.Warn("action abandoned after retries", "intent", intent.String(), "error", err)
		a.sleepUntil(a.clock.Now().Add(parkDelay), stop)
	default:
		a.notFoundStreak++
		a.log.Warn("unexpected api failure, refreshing state",
			"intent", intent.String(), "error", err, "streak", a.notFoundStreak)
		refreshErr := a.refreshShip()
		if errors.Is(err, api.ErrNotFound) && errors.Is(refreshErr, api.ErrNotFound) {
			// both the action and the refresh say the ship does not exist:
			// it was sold or destroyed, stop flying it
			a.log.Error("ship no longer exists, leaving the fleet")
			a.gone = true
			return
		}
		if a.notFoundStreak >= degradedThreshold {
			a.log.Error("ship degraded, skipping for a while", "cooldown", a.degradedCooldown)
			a.notFoundStreak = 0
			a.sleepUntil(a.clock.Now().Add(a.degradedCooldown), stop)
		}
	}
}

func (a *Actor) refreshShip() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	ship, err := a.gw.GetShip(ctx, a.ship.Symbol)
	if err != nil {
		a.log.Warn("could not refresh ship state", "error", err)
		return err
	}
	a.ship = ship
	return nil
}

func (a *Actor) refreshAgent() {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	agent, err := a.gw.GetAgent(ctx)
	if err != nil {
		a.log.Warn("could not refresh agent state", "error", err)
		return
	}
	a.book.Set(agent)
}

// sleepUntil parks the actor without polling anything until the deadline
// passes or the fleet stops.
func (a *Actor) sleepUntil(until time.Time, stop <-chan struct{}) {
	d := until.Sub(a.clock.Now())
	if d <= 0 {
		return
	}
	select {
	case <-a.clock.After(d):
	case <-stop:
	}
}
