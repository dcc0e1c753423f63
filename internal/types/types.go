package types

import (
	"math"
	"strings"
	"time"
)

// Agent is the account that owns the fleet.
type Agent struct {
	Symbol          string `json:"symbol"`
	Headquarters    string `json:"headquarters"`
	Credits         int64  `json:"credits"`
	StartingFaction string `json:"startingFaction"`
	ShipCount       int    `json:"shipCount"`
}

// Navigation status values used by the API.
const (
	NavDocked    = "DOCKED"
	NavInOrbit   = "IN_ORBIT"
	NavInTransit = "IN_TRANSIT"
)

type Ship struct {
	Symbol   string    `json:"symbol"`
	Nav      ShipNav   `json:"nav"`
	Cargo    ShipCargo `json:"cargo"`
	Fuel     ShipFuel  `json:"fuel"`
	Cooldown Cooldown  `json:"cooldown"`
	Mounts   []Mount   `json:"mounts"`
}

type ShipNav struct {
	SystemSymbol   string   `json:"systemSymbol"`
	WaypointSymbol string   `json:"waypointSymbol"`
	Status         string   `json:"status"`
	FlightMode     string   `json:"flightMode"`
	Route          NavRoute `json:"route"`
}

type NavRoute struct {
	Destination   RoutePoint `json:"destination"`
	Origin        RoutePoint `json:"origin"`
	DepartureTime time.Time  `json:"departureTime"`
	Arrival       time.Time  `json:"arrival"`
}

type RoutePoint struct {
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	SystemSymbol string `json:"systemSymbol"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
}

type ShipCargo struct {
	Capacity  int         `json:"capacity"`
	Units     int         `json:"units"`
	Inventory []CargoItem `json:"inventory"`
}

type CargoItem struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Units  int    `json:"units"`
}

type ShipFuel struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

type Cooldown struct {
	ShipSymbol       string    `json:"shipSymbol"`
	TotalSeconds     int       `json:"totalSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Expiration       time.Time `json:"expiration"`
}

type Mount struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// SpaceAvailable is the cargo room left on the ship.
func (s Ship) SpaceAvailable() int {
	return s.Cargo.Capacity - s.Cargo.Units
}

// CanExtract reports whether the ship carries any mining mount.
func (s Ship) CanExtract() bool {
	for _, m := range s.Mounts {
		if strings.HasPrefix(m.Symbol, "MOUNT_MINING_LASER") {
			return true
		}
	}
	return false
}

// OnCooldown reports whether the extraction cooldown is still running at t.
func (s Ship) OnCooldown(t time.Time) bool {
	return s.Cooldown.Expiration.After(t)
}

// InTransitAt reports whether the ship is still travelling at t.
func (s Ship) InTransitAt(t time.Time) bool {
	return s.Nav.Status == NavInTransit && s.Nav.Route.Arrival.After(t)
}

// CargoUnits returns how many units of the given good are held.
func (s Ship) CargoUnits(good string) int {
	for _, i := range s.Cargo.Inventory {
		if i.Symbol == good {
			return i.Units
		}
	}
	return 0
}

type Waypoint struct {
	Symbol       string          `json:"symbol"`
	SystemSymbol string          `json:"systemSymbol"`
	Type         string          `json:"type"`
	X            int             `json:"x"`
	Y            int             `json:"y"`
	Traits       []WaypointTrait `json:"traits"`
}

type WaypointTrait struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// HasTrait reports whether the waypoint carries the given trait symbol.
func (w Waypoint) HasTrait(symbol string) bool {
	for _, t := range w.Traits {
		if t.Symbol == symbol {
			return true
		}
	}
	return false
}

// HasMarket is a shorthand for the MARKETPLACE trait.
func (w Waypoint) HasMarket() bool {
	return w.HasTrait("MARKETPLACE")
}

// Extractable reports whether the waypoint type supports resource extraction.
func (w Waypoint) Extractable() bool {
	return strings.Contains(w.Type, "ASTEROID")
}

// DistanceTo is the Euclidean distance between two waypoints.
func (w Waypoint) DistanceTo(o Waypoint) float64 {
	dx := float64(w.X - o.X)
	dy := float64(w.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

type Market struct {
	Symbol     string      `json:"symbol"`
	TradeGoods []TradeGood `json:"tradeGoods"`
}

type TradeGood struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	Supply string `json:"supply"`
	// TradeVolume is the largest unit count one transaction accepts.
	TradeVolume   int `json:"tradeVolume"`
	PurchasePrice int `json:"purchasePrice"`
	SellPrice     int `json:"sellPrice"`
}

// Good returns the listing for the given trade symbol, if present.
func (m Market) Good(symbol string) (TradeGood, bool) {
	for _, g := range m.TradeGoods {
		if g.Symbol == symbol {
			return g, true
		}
	}
	return TradeGood{}, false
}

type Extraction struct {
	ShipSymbol string `json:"shipSymbol"`
	Yield      struct {
		Symbol string `json:"symbol"`
		Units  int    `json:"units"`
	} `json:"yield"`
}

type Transaction struct {
	WaypointSymbol string    `json:"waypointSymbol"`
	ShipSymbol     string    `json:"shipSymbol"`
	TradeSymbol    string    `json:"tradeSymbol"`
	Type           string    `json:"type"`
	Units          int       `json:"units"`
	PricePerUnit   int       `json:"pricePerUnit"`
	TotalPrice     int       `json:"totalPrice"`
	Timestamp      time.Time `json:"timestamp"`
}

type Contract struct {
	ID            string `json:"id"`
	FactionSymbol string `json:"factionSymbol"`
	Type          string `json:"type"`
	Accepted      bool   `json:"accepted"`
	Fulfilled     bool   `json:"fulfilled"`
	Terms         struct {
		Deadline time.Time `json:"deadline"`
		Payment  struct {
			OnAccepted  int `json:"onAccepted"`
			OnFulfilled int `json:"onFulfilled"`
		} `json:"payment"`
		Deliver []ContractDelivery `json:"deliver"`
	} `json:"terms"`
}

type ContractDelivery struct {
	TradeSymbol       string `json:"tradeSymbol"`
	DestinationSymbol string `json:"destinationSymbol"`
	UnitsRequired     int    `json:"unitsRequired"`
	UnitsFulfilled    int    `json:"unitsFulfilled"`
}

// SystemOf extracts the system symbol from a waypoint symbol.
// X1-ABC123-AB12 -> X1-ABC123
func SystemOf(waypointSymbol string) string {
	if i := strings.LastIndex(waypointSymbol, "-"); i > 0 {
		return waypointSymbol[:i]
	}
	return waypointSymbol
}
