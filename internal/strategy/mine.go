package strategy

import (
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// MiningPolicy keeps extraction-capable ships on an extract/sell loop and
// lets everything else fall through to the trade policy.
type MiningPolicy struct {
	trade *TradePolicy
}

func NewMiningPolicy() *MiningPolicy {
	return &MiningPolicy{trade: NewTradePolicy()}
}

func (p *MiningPolicy) Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) Intent {
	if !ship.CanExtract() {
		return p.trade.Decide(ship, view, agent, now)
	}
	if ship.InTransitAt(now) {
		return Idle(ship.Nav.Route.Arrival)
	}

	here := p.trade.position(ship, view)

	if p.trade.needsFuel(ship) {
		if intent, ok := p.trade.refuelIntent(ship, view, here, now); ok {
			return intent
		}
	}

	// Full hold: dump cargo at the best market before mining again.
	if ship.SpaceAvailable() == 0 {
		if intent, ok := p.trade.sellIntent(ship, view, here, now); ok {
			return intent
		}
	}

	if ship.OnCooldown(now) {
		return Idle(ship.Cooldown.Expiration)
	}

	if ship.SpaceAvailable() > 0 {
		if intent, ok := p.trade.mineIntent(ship, view, here); ok {
			return intent
		}
	}

	// Nothing to mine nearby; sell leftovers or explore.
	if ship.Cargo.Units > 0 {
		if intent, ok := p.trade.sellIntent(ship, view, here, now); ok {
			return intent
		}
	}
	if intent, ok := p.trade.exploreIntent(ship, view, here, now); ok {
		return intent
	}
	return Idle(now.Add(p.trade.IdlePeriod))
}
