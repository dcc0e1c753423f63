package strategy

import (
	"fmt"
	"time"
)

// Kind enumerates every action a policy can ask a ship to take.
type Kind int

const (
	KindIdle Kind = iota
	KindNavigate
	KindDock
	KindOrbit
	KindExtract
	KindRefuel
	KindSell
	KindBuy
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "Idle"
	case KindNavigate:
		return "Navigate"
	case KindDock:
		return "Dock"
	case KindOrbit:
		return "Orbit"
	case KindExtract:
		return "Extract"
	case KindRefuel:
		return "Refuel"
	case KindSell:
		return "Sell"
	case KindBuy:
		return "Buy"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Intent is the chosen next action for one ship. It is consumed immediately
// by the ship actor and never stored.
type Intent struct {
	Kind     Kind
	Waypoint string    // Navigate target
	Good     string    // Sell/Buy trade symbol
	Units    int       // Sell/Buy quantity
	Until    time.Time // Idle deadline
}

func Idle(until time.Time) Intent       { return Intent{Kind: KindIdle, Until: until} }
func Navigate(waypoint string) Intent   { return Intent{Kind: KindNavigate, Waypoint: waypoint} }
func Dock() Intent                      { return Intent{Kind: KindDock} }
func Orbit() Intent                     { return Intent{Kind: KindOrbit} }
func Extract() Intent                   { return Intent{Kind: KindExtract} }
func Refuel() Intent                    { return Intent{Kind: KindRefuel} }
func Sell(good string, units int) Intent {
	return Intent{Kind: KindSell, Good: good, Units: units}
}
func Buy(good string, units int) Intent {
	return Intent{Kind: KindBuy, Good: good, Units: units}
}

func (i Intent) String() string {
	switch i.Kind {
	case KindNavigate:
		return fmt.Sprintf("Navigate(%s)", i.Waypoint)
	case KindSell:
		return fmt.Sprintf("Sell(%s x%d)", i.Good, i.Units)
	case KindBuy:
		return fmt.Sprintf("Buy(%s x%d)", i.Good, i.Units)
	case KindIdle:
		return fmt.Sprintf("Idle(until %s)", i.Until.Format(time.RFC3339))
	}
	return i.Kind.String()
}
