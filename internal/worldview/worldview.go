package worldview

import (
	"sort"
	"sync"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
)

// Entry is everything the fleet knows about one waypoint.
type Entry struct {
	Waypoint     types.Waypoint
	Market       *types.Market
	WaypointSeen time.Time
	MarketSeen   time.Time
}

// View is the shared cache of observed waypoints and markets. Every ship
// actor reads it when deciding and writes into it whatever its API responses
// revealed. Entries are independent per waypoint symbol; a single RWMutex
// over the map is enough since values are replaced wholesale.
type View struct {
	mu           sync.RWMutex
	entries      map[string]*Entry
	marketMaxAge time.Duration
}

func New(marketMaxAge time.Duration) *View {
	return &View{
		entries:      make(map[string]*Entry),
		marketMaxAge: marketMaxAge,
	}
}

// ObserveWaypoint merges a waypoint observation. Last writer by observation
// time wins; replaying an older observation never regresses a newer entry.
func (v *View) ObserveWaypoint(w types.Waypoint, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[w.Symbol]
	if !ok {
		v.entries[w.Symbol] = &Entry{Waypoint: w, WaypointSeen: at}
		return
	}
	if at.Before(e.WaypointSeen) {
		return
	}
	e.Waypoint = w
	e.WaypointSeen = at
}

// ObserveMarket merges a market observation under the same last-writer-wins
// rule. The market symbol is the waypoint symbol it belongs to.
func (v *View) ObserveMarket(m types.Market, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[m.Symbol]
	if !ok {
		e = &Entry{Waypoint: types.Waypoint{Symbol: m.Symbol, SystemSymbol: types.SystemOf(m.Symbol)}}
		v.entries[m.Symbol] = e
	}
	if e.Market != nil && at.Before(e.MarketSeen) {
		return
	}
	mc := m
	e.Market = &mc
	e.MarketSeen = at
}

// Lookup returns a copy of the entry for a waypoint, or false if unknown.
func (v *View) Lookup(symbol string) (Entry, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[symbol]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MarketFor returns the market at a waypoint, or false when the waypoint is
// unknown or its market data is older than the freshness threshold.
func (v *View) MarketFor(symbol string, now time.Time) (types.Market, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[symbol]
	if !ok || e.Market == nil {
		return types.Market{}, false
	}
	if now.Sub(e.MarketSeen) > v.marketMaxAge {
		return types.Market{}, false
	}
	return *e.Market, true
}

// Waypoints returns all known waypoints in a system, sorted by symbol so
// iteration order is stable for the strategy engine.
func (v *View) Waypoints(system string) []types.Waypoint {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []types.Waypoint
	for _, e := range v.entries {
		if e.Waypoint.SystemSymbol == system {
			out = append(out, e.Waypoint)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// MarketEntry pairs a fresh market with its waypoint for route evaluation.
type MarketEntry struct {
	Waypoint types.Waypoint
	Market   types.Market
}

// MarketsInSystem returns every fresh market in a system whose waypoint
// coordinates are known, sorted by waypoint symbol.
func (v *View) MarketsInSystem(system string, now time.Time) []MarketEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []MarketEntry
	for _, e := range v.entries {
		if e.Waypoint.SystemSymbol != system || e.Market == nil {
			continue
		}
		// a market whose waypoint was never observed has no usable
		// coordinates; distance scoring against (0,0) would be garbage
		if e.WaypointSeen.IsZero() {
			continue
		}
		if now.Sub(e.MarketSeen) > v.marketMaxAge {
			continue
		}
		out = append(out, MarketEntry{Waypoint: e.Waypoint, Market: *e.Market})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Waypoint.Symbol < out[j].Waypoint.Symbol })
	return out
}

// Prune drops market data older than the freshness threshold. Waypoint
// descriptive data is kept; it barely changes.
func (v *View) Prune(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.entries {
		if e.Market != nil && now.Sub(e.MarketSeen) > v.marketMaxAge {
			e.Market = nil
		}
	}
}

// Len returns the number of known waypoints.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}
