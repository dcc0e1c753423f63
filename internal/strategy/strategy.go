package strategy

import (
	"fmt"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// Decider chooses the next action for a ship from its state and the shared
// world view. Implementations must be pure: identical inputs always produce
// the identical intent, so decisions are testable and replayable.
type Decider interface {
	Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) Intent
}

// Select returns the policy configured at startup.
func Select(name string) (Decider, error) {
	switch name {
	case "trade", "":
		return NewTradePolicy(), nil
	case "mine":
		return NewMiningPolicy(), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}
