package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/strategy"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
	"github.com/papaburgs/vigilant-umbrella/internal/worldview"
)

// Options tunes a Scheduler. Zero values pick sensible defaults.
type Options struct {
	Clock            Clock
	Ledger           Recorder
	DegradedCooldown time.Duration
	SnapshotInterval time.Duration
}

// Scheduler owns the set of ship actors: one goroutine per ship, a shared
// agent book, and a snapshot loop. A panicking actor is restarted from fresh
// server state; nothing a single ship does can stop the rest of the fleet.
type Scheduler struct {
	gw      Gateway
	view    *worldview.View
	decider strategy.Decider
	opts    Options
	book    *AgentBook

	mu       sync.Mutex
	ships    map[string]bool
	stopping bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(gw Gateway, view *worldview.View, decider strategy.Decider, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.DegradedCooldown == 0 {
		opts.DegradedCooldown = 5 * time.Minute
	}
	if opts.SnapshotInterval == 0 {
		opts.SnapshotInterval = 5 * time.Minute
	}
	return &Scheduler{
		gw:      gw,
		view:    view,
		decider: decider,
		opts:    opts,
		ships:   make(map[string]bool),
		stop:    make(chan struct{}),
	}
}

// Start loads the agent and fleet from the gateway and spawns one actor per
// ship. It returns once everything is running; the fleet keeps going until
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	l := slog.With("function", "Start")

	agent, err := s.gw.GetAgent(ctx)
	if err != nil {
		return fmt.Errorf("loading agent: %w", err)
	}
	s.book = NewAgentBook(agent)
	l.Info("agent loaded", "symbol", agent.Symbol, "credits", agent.Credits)

	ships, err := s.gw.ListShips(ctx)
	if err != nil {
		return fmt.Errorf("loading fleet: %w", err)
	}
	l.Info("fleet loaded", "ships", len(ships))

	for _, ship := range ships {
		s.AddShip(ship)
	}

	s.wg.Add(1)
	go s.snapshotLoop()

	return nil
}

// AddShip spawns an actor for a newly acquired ship. Safe to call mid-run.
func (s *Scheduler) AddShip(ship types.Ship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || s.ships[ship.Symbol] {
		return
	}
	s.ships[ship.Symbol] = true
	s.wg.Add(1)
	go s.runShip(ship)
	slog.Info("ship actor started", "ship", ship.Symbol)
}

// Agent returns the shared agent book. Nil before Start.
func (s *Scheduler) Agent() *AgentBook { return s.book }

// Stop signals every actor to finish its current action and exit, then waits
// for them. In-flight calls are never aborted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	close(s.stop)
	s.mu.Unlock()

	slog.Info("stopping fleet")
	s.wg.Wait()
	slog.Info("fleet stopped")
}

// runShip keeps one ship's actor alive. A panic is contained here: the ship
// state is refetched and the actor restarted, so a bug in one ship's loop
// cannot take the fleet down.
func (s *Scheduler) runShip(ship types.Ship) {
	defer s.wg.Done()
	for {
		crashed, gone := s.runActorOnce(ship)
		if gone {
			s.dropShip(ship.Symbol)
			return
		}
		if !crashed {
			return
		}
		select {
		case <-s.stop:
			return
		case <-s.opts.Clock.After(5 * time.Second):
		}
		fresh, err := s.refetch(ship.Symbol)
		if err != nil {
			slog.Error("could not refetch crashed ship, retrying later", "ship", ship.Symbol, "error", err)
			continue
		}
		ship = fresh
	}
}

// runActorOnce runs an actor until it exits; reports whether it panicked and
// whether the ship turned out to no longer exist.
func (s *Scheduler) runActorOnce(ship types.Ship) (crashed, gone bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ship actor panicked, will restart", "ship", ship.Symbol, "panic", r)
			crashed = true
		}
	}()
	a := NewActor(ship, s.gw, s.view, s.decider, s.book, s.opts.Clock, s.opts.Ledger, s.opts.DegradedCooldown)
	a.Run(s.stop)
	return false, a.gone
}

// dropShip forgets a ship that was sold or destroyed, so snapshot fleet
// counts stay honest.
func (s *Scheduler) dropShip(symbol string) {
	s.mu.Lock()
	delete(s.ships, symbol)
	s.mu.Unlock()
	slog.Info("ship removed from fleet", "ship", symbol)
}

func (s *Scheduler) refetch(symbol string) (types.Ship, error) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return s.gw.GetShip(ctx, symbol)
}

// snapshotLoop periodically records the agent's position into the ledger and
// ages stale market data out of the view.
func (s *Scheduler) snapshotLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case <-s.opts.Clock.After(s.opts.SnapshotInterval):
		}
		now := s.opts.Clock.Now()
		s.view.Prune(now)
		if s.opts.Ledger != nil {
			s.mu.Lock()
			ships := len(s.ships)
			s.mu.Unlock()
			s.opts.Ledger.RecordSnapshot(s.book.Get(), ships, now)
		}
	}
}
