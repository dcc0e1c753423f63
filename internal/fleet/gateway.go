package fleet

import (
	"context"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/api"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
)

// Gateway is the slice of the game API the fleet consumes. *api.Client
// satisfies it; tests substitute fakes.
type Gateway interface {
	GetAgent(ctx context.Context) (types.Agent, error)
	ListShips(ctx context.Context) ([]types.Ship, error)
	GetShip(ctx context.Context, symbol string) (types.Ship, error)
	Navigate(ctx context.Context, ship, waypoint string) (api.NavigateResult, error)
	Dock(ctx context.Context, ship string) (types.ShipNav, error)
	Orbit(ctx context.Context, ship string) (types.ShipNav, error)
	Extract(ctx context.Context, ship string) (api.ExtractResult, error)
	Refuel(ctx context.Context, ship string) (api.RefuelResult, error)
	SellCargo(ctx context.Context, ship, good string, units int) (api.TradeResult, error)
	BuyCargo(ctx context.Context, ship, good string, units int) (api.TradeResult, error)
	GetMarket(ctx context.Context, system, waypoint string) (types.Market, error)
	GetWaypoint(ctx context.Context, system, waypoint string) (types.Waypoint, error)
	ListSystemWaypoints(ctx context.Context, system string) ([]types.Waypoint, error)
}

// Recorder is the optional ledger the fleet writes trades and observations
// into. Recording is best-effort; implementations must never fail an action.
type Recorder interface {
	RecordTrade(tx types.Transaction)
	RecordMarket(m types.Market, at time.Time)
	RecordSnapshot(agent types.Agent, ships int, at time.Time)
}
