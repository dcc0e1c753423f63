package gate

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Gate paces every outbound API call. The game allows a steady trickle of
// requests per second plus a burst pool that refills each minute; both
// windows are tracked and a caller is admitted from whichever has room.
type Gate struct {
	t1Ticker   *time.Ticker
	t60Ticker  *time.Ticker
	tCheck     *time.Ticker
	t1Limit    int
	t60Limit   int
	t1Count    int
	t60Count   int
	cooldown   time.Duration
	cooledAt   time.Time
	queue      *list.List
	queueMutex sync.Mutex
}

const (
	baseCooldown = time.Second
	maxCooldown  = time.Minute
)

// New builds a gate admitting t1Limit calls per second steady state plus a
// t60Limit burst pool per minute, and starts its dispatch loop.
func New(t1Limit, t60Limit int) *Gate {
	g := Gate{
		t1Ticker:  time.NewTicker(time.Second + (20 * time.Millisecond)),
		t60Ticker: time.NewTicker(time.Minute),
		tCheck:    time.NewTicker(time.Millisecond * 20),
		t1Limit:   t1Limit,
		t60Limit:  t60Limit,
		queue:     &list.List{},
	}
	g.queue.Init()
	go g.loop()
	return &g
}

func (g *Gate) loop() {
	for {
		select {
		case <-g.t1Ticker.C:
			g.queueMutex.Lock()
			g.t1Count = 0
			g.decayCooldown()
			g.queueMutex.Unlock()
		case <-g.t60Ticker.C:
			g.queueMutex.Lock()
			g.t60Count = 0
			g.queueMutex.Unlock()
		case <-g.tCheck.C:
			g.dispatchOne()
		}
	}
}

// dispatchOne admits the caller at the head of the queue if a window has room.
func (g *Gate) dispatchOne() {
	g.queueMutex.Lock()
	defer g.queueMutex.Unlock()

	if time.Now().Before(g.cooledAt) {
		return
	}

	node := g.queue.Front()
	if node == nil {
		return
	}
	c, ok := node.Value.(chan struct{})
	if !ok {
		slog.Warn("unexpected value type on gate queue")
		g.queue.Remove(node)
		return
	}

	switch {
	case g.t1Count < g.t1Limit:
		g.t1Count++
		close(c)
		g.queue.Remove(node)
	case g.t60Count < g.t60Limit:
		if g.t60Count == 0 {
			g.t60Ticker.Reset(time.Minute)
		}
		g.t60Count++
		close(c)
		g.queue.Remove(node)
	}
}

// Latch blocks until it is safe to issue one API call, or until ctx is done.
// A channel goes on the queue; the dispatch loop closes it when a slot frees
// up. Returning ctx.Err() lets a stopping fleet drain instead of hanging.
func (g *Gate) Latch(ctx context.Context) error {
	g.queueMutex.Lock()
	c := make(chan struct{})
	e := g.queue.PushBack(c)
	g.queueMutex.Unlock()
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		g.queueMutex.Lock()
		// the dispatch loop may have admitted us in the meantime
		select {
		case <-c:
		default:
			g.queue.Remove(e)
		}
		g.queueMutex.Unlock()
		return ctx.Err()
	}
}

// Lock is called when the server answers 429. Both windows are poisoned so
// nobody gets through until they tick over, and a fleet-wide cooldown is
// applied that doubles on each consecutive lock.
func (g *Gate) Lock() {
	g.queueMutex.Lock()
	defer g.queueMutex.Unlock()
	g.t1Count = g.t1Limit
	g.t60Count = g.t60Limit
	if g.cooldown == 0 {
		g.cooldown = baseCooldown
	} else {
		g.cooldown *= 2
		if g.cooldown > maxCooldown {
			g.cooldown = maxCooldown
		}
	}
	g.cooledAt = time.Now().Add(g.cooldown)
	slog.Warn("rate limit hit, gate locked", "cooldown", g.cooldown)
}

// decayCooldown halves the penalty each clean second once the cooldown has
// passed, so a single 429 does not throttle the fleet forever.
func (g *Gate) decayCooldown() {
	if g.cooldown == 0 || time.Now().Before(g.cooledAt) {
		return
	}
	g.cooldown /= 2
	if g.cooldown < baseCooldown {
		g.cooldown = 0
	}
}
