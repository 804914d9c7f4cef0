package game

import (
	"math"
	"sync"
	"testing"
	"time"
)

// manualScheduler fires callbacks only when the test advances its clock.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	every []*repeating
	once  []oneShot
}

type repeating struct {
	interval time.Duration
	next     time.Time
	fn       func()
}

type oneShot struct {
	at time.Time
	fn func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Unix(1_700_000_000, 0)}
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.every = append(s.every, &repeating{interval: interval, next: s.now.Add(interval), fn: fn})
}

func (s *manualScheduler) At(t time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once = append(s.once, oneShot{at: t, fn: fn})
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward and runs everything that came due, in
// the calling goroutine.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []func()
	for _, r := range s.every {
		for !r.next.After(s.now) {
			due = append(due, r.fn)
			r.next = r.next.Add(r.interval)
		}
	}
	remaining := s.once[:0]
	for _, o := range s.once {
		if o.at.After(s.now) {
			remaining = append(remaining, o)
			continue
		}
		due = append(due, o.fn)
	}
	s.once = remaining
	s.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

func (s *manualScheduler) pendingOnce() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.once)
}

// newTestEngine returns an initialized engine on a manual clock.
func newTestEngine(t *testing.T) (*Engine, *manualScheduler) {
	t.Helper()
	sched := newManualScheduler()
	e := NewEngine(EngineConfig{
		MaxFood:   50,
		Seed:      42,
		Scheduler: sched,
	})
	if err := e.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return e, sched
}

// placePlayer writes a player row directly, bypassing spawn randomness.
func placePlayer(e *Engine, id Identity, x, y, mass float64) Player {
	p := Player{Identity: id, Name: string(id), X: x, Y: y, Color: Palette[0]}.withMass(mass)
	e.Store().Update(func(tx *Tx) {
		tx.PutPlayer(p)
	})
	return p
}

func placeCell(e *Engine, owner Identity, x, y, mass float64) PlayerCell {
	var c PlayerCell
	e.Store().Update(func(tx *Tx) {
		c = tx.PutCell(PlayerCell{Owner: owner, X: x, Y: y}.withMass(mass))
	})
	return c
}

func placeFood(e *Engine, x, y float64) FoodPellet {
	var f FoodPellet
	e.Store().Update(func(tx *Tx) {
		f = tx.PutFood(FoodPellet{X: x, Y: y, Radius: FoodRadius})
	})
	return f
}

func mustPlayer(t *testing.T, e *Engine, id Identity) Player {
	t.Helper()
	p, ok := e.GetPlayer(id)
	if !ok {
		t.Fatalf("Player %s should exist", id)
	}
	return p
}

func foodCount(e *Engine) int {
	var n int
	e.Store().View(func(tx *Tx) {
		n = tx.FoodCount()
	})
	return n
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// assertInvariants checks the mass/radius relationship and the mass floors
// for every row.
func assertInvariants(t *testing.T, e *Engine) {
	t.Helper()
	e.Store().View(func(tx *Tx) {
		for _, p := range tx.Players() {
			if p.Radius != MassToRadius(p.Mass) {
				t.Errorf("Player %s radius %v != MassToRadius(%v)", p.Identity, p.Radius, p.Mass)
			}
		}
		for _, c := range tx.Cells() {
			if c.Radius != MassToRadius(c.Mass) {
				t.Errorf("Cell %d radius %v != MassToRadius(%v)", c.CellID, c.Radius, c.Mass)
			}
			if _, ok := tx.Player(c.Owner); !ok {
				t.Errorf("Cell %d is orphaned (owner %s missing)", c.CellID, c.Owner)
			}
		}
	})
}
