package strategy

import (
	"sort"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// TradePolicy is the default policy: sell what we hold at the best known
// price, otherwise work the most profitable buy-low/sell-high route, fall
// back to extraction for mining-capable ships, and explore unseen markets
// when nothing else pays.
type TradePolicy struct {
	// FuelReserve is the fraction of fuel below which refuelling takes
	// priority over everything else.
	FuelReserve float64
	// DistanceCost is the estimated credits of fuel/time lost per unit of
	// travel distance, subtracted from a route's per-unit margin.
	DistanceCost float64
	// IdlePeriod is how long to park when there is nothing to do.
	IdlePeriod time.Duration
}

func NewTradePolicy() *TradePolicy {
	return &TradePolicy{
		FuelReserve:  0.25,
		DistanceCost: 0.5,
		IdlePeriod:   time.Minute,
	}
}

func (p *TradePolicy) Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) Intent {
	if ship.InTransitAt(now) {
		return Idle(ship.Nav.Route.Arrival)
	}
	if ship.OnCooldown(now) && ship.Cargo.Units == 0 {
		return Idle(ship.Cooldown.Expiration)
	}

	here := p.position(ship, view)

	if p.needsFuel(ship) {
		if intent, ok := p.refuelIntent(ship, view, here, now); ok {
			return intent
		}
	}

	if ship.Cargo.Units > 0 {
		if intent, ok := p.sellIntent(ship, view, here, now); ok {
			return intent
		}
	}

	if ship.Cargo.Units == 0 {
		if intent, ok := p.routeIntent(ship, view, agent, here, now); ok {
			return intent
		}
	}

	if ship.CanExtract() && ship.SpaceAvailable() > 0 && !ship.OnCooldown(now) {
		if intent, ok := p.mineIntent(ship, view, here); ok {
			return intent
		}
	}

	if intent, ok := p.exploreIntent(ship, view, here, now); ok {
		return intent
	}

	return Idle(now.Add(p.IdlePeriod))
}

// position returns the best known coordinates for the ship's waypoint. An
// unknown waypoint falls back to the origin, which keeps distance math
// deterministic until the waypoint is observed.
func (p *TradePolicy) position(ship types.Ship, view *worldview.View) types.Waypoint {
	if e, ok := view.Lookup(ship.Nav.WaypointSymbol); ok {
		return e.Waypoint
	}
	return types.Waypoint{Symbol: ship.Nav.WaypointSymbol, SystemSymbol: ship.Nav.SystemSymbol}
}

func (p *TradePolicy) needsFuel(ship types.Ship) bool {
	if ship.Fuel.Capacity == 0 {
		return false
	}
	return float64(ship.Fuel.Current) < p.FuelReserve*float64(ship.Fuel.Capacity)
}

// refuelIntent refuels here when the local market trades fuel, otherwise
// heads for the nearest market that does.
func (p *TradePolicy) refuelIntent(ship types.Ship, view *worldview.View, here types.Waypoint, now time.Time) (Intent, bool) {
	if m, ok := view.MarketFor(ship.Nav.WaypointSymbol, now); ok {
		if _, ok := m.Good("FUEL"); ok {
			return Refuel(), true
		}
	}
	var candidates []types.Waypoint
	for _, e := range view.MarketsInSystem(ship.Nav.SystemSymbol, now) {
		if _, ok := e.Market.Good("FUEL"); ok && e.Waypoint.Symbol != here.Symbol {
			candidates = append(candidates, e.Waypoint)
		}
	}
	if w, ok := nearest(candidates, here); ok {
		return Navigate(w.Symbol), true
	}
	return Intent{}, false
}

// sellIntent picks the held good and market with the highest total sale
// value. Ties go to the closer market, then the lower waypoint symbol.
func (p *TradePolicy) sellIntent(ship types.Ship, view *worldview.View, here types.Waypoint, now time.Time) (Intent, bool) {
	inventory := make([]types.CargoItem, len(ship.Cargo.Inventory))
	copy(inventory, ship.Cargo.Inventory)
	sort.Slice(inventory, func(i, j int) bool { return inventory[i].Symbol < inventory[j].Symbol })

	markets := view.MarketsInSystem(ship.Nav.SystemSymbol, now)

	var (
		found     bool
		bestValue int
		bestDist  float64
		bestGood  types.CargoItem
		bestWp    types.Waypoint
		bestVol   int
	)
	for _, item := range inventory {
		if item.Units == 0 {
			continue
		}
		for _, e := range markets {
			g, ok := e.Market.Good(item.Symbol)
			if !ok || g.SellPrice <= 0 {
				continue
			}
			value := g.SellPrice * item.Units
			dist := here.DistanceTo(e.Waypoint)
			if found && (value < bestValue || (value == bestValue && dist >= bestDist)) {
				continue
			}
			found = true
			bestValue = value
			bestDist = dist
			bestGood = item
			bestWp = e.Waypoint
			bestVol = g.TradeVolume
		}
	}
	if !found {
		return Intent{}, false
	}
	if bestWp.Symbol == ship.Nav.WaypointSymbol {
		units := bestGood.Units
		if bestVol > 0 && units > bestVol {
			units = bestVol
		}
		return Sell(bestGood.Symbol, units), true
	}
	return Navigate(bestWp.Symbol), true
}

// route is a candidate buy-low/sell-high leg.
type route struct {
	good     string
	buy      types.Waypoint
	buyPrice int
	buyVol   int
	sell     types.Waypoint
	margin   int
	travel   float64
	score    float64
}

// routeIntent evaluates every good known in at least two markets and picks
// the route with the best per-unit margin after estimated travel cost.
// Among equally scored routes the shorter one wins, minimising exposure to
// stale market data.
func (p *TradePolicy) routeIntent(ship types.Ship, view *worldview.View, agent types.Agent, here types.Waypoint, now time.Time) (Intent, bool) {
	markets := view.MarketsInSystem(ship.Nav.SystemSymbol, now)
	if len(markets) < 2 {
		return Intent{}, false
	}

	goods := map[string]bool{}
	for _, e := range markets {
		for _, g := range e.Market.TradeGoods {
			goods[g.Symbol] = true
		}
	}
	symbols := make([]string, 0, len(goods))
	for s := range goods {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var best *route
	for _, symbol := range symbols {
		var buy, sell *worldview.MarketEntry
		var buyGood, sellGood types.TradeGood
		for i := range markets {
			g, ok := markets[i].Market.Good(symbol)
			if !ok {
				continue
			}
			if g.PurchasePrice > 0 && (buy == nil || g.PurchasePrice < buyGood.PurchasePrice) {
				buy = &markets[i]
				buyGood = g
			}
			if g.SellPrice > 0 && (sell == nil || g.SellPrice > sellGood.SellPrice) {
				sell = &markets[i]
				sellGood = g
			}
		}
		if buy == nil || sell == nil || buy.Waypoint.Symbol == sell.Waypoint.Symbol {
			continue
		}
		margin := sellGood.SellPrice - buyGood.PurchasePrice
		if margin <= 0 {
			continue
		}
		travel := here.DistanceTo(buy.Waypoint) + buy.Waypoint.DistanceTo(sell.Waypoint)
		score := float64(margin) - travel*p.DistanceCost
		if score <= 0 {
			continue
		}
		r := route{
			good:     symbol,
			buy:      buy.Waypoint,
			buyPrice: buyGood.PurchasePrice,
			buyVol:   buyGood.TradeVolume,
			sell:     sell.Waypoint,
			margin:   margin,
			travel:   travel,
			score:    score,
		}
		if best == nil || r.score > best.score || (r.score == best.score && r.travel < best.travel) {
			rc := r
			best = &rc
		}
	}
	if best == nil {
		return Intent{}, false
	}

	units := ship.SpaceAvailable()
	if best.buyVol > 0 && units > best.buyVol {
		units = best.buyVol
	}
	if affordable := int(agent.Credits) / best.buyPrice; units > affordable {
		units = affordable
	}
	if units <= 0 {
		return Intent{}, false
	}

	if best.buy.Symbol == ship.Nav.WaypointSymbol {
		return Buy(best.good, units), true
	}
	return Navigate(best.buy.Symbol), true
}

func (p *TradePolicy) mineIntent(ship types.Ship, view *worldview.View, here types.Waypoint) (Intent, bool) {
	if e, ok := view.Lookup(ship.Nav.WaypointSymbol); ok && e.Waypoint.Extractable() {
		return Extract(), true
	}
	var candidates []types.Waypoint
	for _, w := range view.Waypoints(ship.Nav.SystemSymbol) {
		if w.Extractable() && w.Symbol != ship.Nav.WaypointSymbol {
			candidates = append(candidates, w)
		}
	}
	if w, ok := nearest(candidates, here); ok {
		return Navigate(w.Symbol), true
	}
	return Intent{}, false
}

// exploreIntent heads for the nearest marketplace we have not priced yet, so
// the world view keeps growing when there is nothing better to do.
func (p *TradePolicy) exploreIntent(ship types.Ship, view *worldview.View, here types.Waypoint, now time.Time) (Intent, bool) {
	var candidates []types.Waypoint
	for _, w := range view.Waypoints(ship.Nav.SystemSymbol) {
		if w.Symbol == ship.Nav.WaypointSymbol || !w.HasMarket() {
			continue
		}
		if _, fresh := view.MarketFor(w.Symbol, now); fresh {
			continue
		}
		candidates = append(candidates, w)
	}
	if w, ok := nearest(candidates, here); ok {
		return Navigate(w.Symbol), true
	}
	return Intent{}, false
}

// nearest returns the closest waypoint, breaking distance ties by symbol.
func nearest(candidates []types.Waypoint, from types.Waypoint) (types.Waypoint, bool) {
	if len(candidates) == 0 {
		return types.Waypoint{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		di := from.DistanceTo(candidates[i])
		dj := from.DistanceTo(candidates[j])
		if di != dj {
			return di < dj
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	return candidates[0], true
}
