package fleet

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/api"
	"github.com/papaburgs/vigilant-umbrella/internal/strategy"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// panicOnceDecider blows up on its first decision, then idles.
type panicOnceDecider struct {
	mu       sync.Mutex
	panicked bool
}

func (d *panicOnceDecider) Decide(ship types.Ship, view *worldview.View, agent types.Agent, now time.Time) strategy.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.panicked {
		d.panicked = true
		panic("decider bug")
	}
	return strategy.Idle(now.Add(24 * time.Hour))
}

func waitForSleepers(t *testing.T, c *fakeClock, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.waiting() < want {
		if time.Now().After(deadline) {
			t.Fatalf("never saw %d sleepers, got %d", want, c.waiting())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	clock := newFakeClock(t0)
	gw := &fakeGateway{
		agent: types.Agent{Symbol: "BURG", Credits: 1000},
		ships: []types.Ship{orbitingShip("X1-T-A1"), orbitingShip("X1-T-B1")},
	}
	gw.ships[1].Symbol = "BURG-2"

	s := NewScheduler(gw, worldview.New(time.Hour), &fixedDecider{strategy.Idle(t0.Add(24 * time.Hour))},
		Options{Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.Agent().Get().Credits; got != 1000 {
		t.Errorf("agent book not seeded: %d credits", got)
	}

	// two idling actors plus the snapshot loop
	waitForSleepers(t, clock, 3)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	s.Stop() // second call is a no-op
}

func TestSchedulerSnapshots(t *testing.T) {
	clock := newFakeClock(t0)
	gw := &fakeGateway{
		agent: types.Agent{Symbol: "BURG", Credits: 1000},
		ships: []types.Ship{orbitingShip("X1-T-A1")},
	}
	ledger := &memLedger{}

	s := NewScheduler(gw, worldview.New(time.Hour), &fixedDecider{strategy.Idle(t0.Add(24 * time.Hour))},
		Options{Clock: clock, Ledger: ledger, SnapshotInterval: time.Minute})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitForSleepers(t, clock, 2)
	clock.Advance(61 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		ledger.mu.Lock()
		n := len(ledger.snapshots)
		ledger.mu.Unlock()
		if n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no snapshot recorded")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerRestartsPanickedActor(t *testing.T) {
	clock := newFakeClock(t0)
	ship := orbitingShip("X1-T-A1")
	gw := &fakeGateway{
		agent: types.Agent{Symbol: "BURG"},
		ships: []types.Ship{ship},
		ship:  ship,
	}

	s := NewScheduler(gw, worldview.New(time.Hour), &panicOnceDecider{}, Options{Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	// the crashed actor's restart backoff plus the snapshot loop
	waitForSleepers(t, clock, 2)
	clock.Advance(6 * time.Second)

	pollCalls(t, gw, "GetShip", 1)
	// the replacement actor is alive and idling
	waitForSleepers(t, clock, 2)
}

// A ship the server no longer knows (sold or destroyed) leaves the fleet:
// its actor exits instead of cycling refreshes, and the scheduler stops
// counting it.
func TestGoneShipLeavesFleet(t *testing.T) {
	clock := newFakeClock(t0)
	ship := orbitingShip("X1-T-A1")
	gw := &fakeGateway{
		agent:      types.Agent{Symbol: "BURG"},
		ships:      []types.Ship{ship},
		shipErr:    fmt.Errorf("get ship: %w", api.ErrNotFound),
		extractErr: fmt.Errorf("extract: %w", api.ErrNotFound),
	}

	s := NewScheduler(gw, worldview.New(time.Hour), &fixedDecider{strategy.Extract()},
		Options{Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.ships)
		s.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("gone ship never left the fleet")
		}
		time.Sleep(time.Millisecond)
	}

	if got := gw.callCount("Extract"); got != 1 {
		t.Errorf("kept acting on a gone ship: %d extract attempts", got)
	}
	if got := gw.callCount("GetShip"); got != 1 {
		t.Errorf("kept refreshing a gone ship: %d refreshes", got)
	}
}

func TestAddShipDeduplicates(t *testing.T) {
	clock := newFakeClock(t0)
	gw := &fakeGateway{}
	s := NewScheduler(gw, worldview.New(time.Hour), &fixedDecider{strategy.Idle(t0.Add(24 * time.Hour))},
		Options{Clock: clock})
	s.book = NewAgentBook(types.Agent{})

	ship := orbitingShip("X1-T-A1")
	s.AddShip(ship)
	s.AddShip(ship)

	s.mu.Lock()
	n := len(s.ships)
	s.mu.Unlock()
	if n != 1 {
		t.Fatalf("duplicate ship spawned: %d entries", n)
	}

	s.Stop()

	s.AddShip(orbitingShip("X1-T-B1"))
	s.mu.Lock()
	n = len(s.ships)
	s.mu.Unlock()
	if n != 1 {
		t.Fatal("AddShip after Stop should be a no-op")
	}
}
