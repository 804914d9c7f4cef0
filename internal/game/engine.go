package game

import (
	"errors"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"cell-arena/internal/metrics"
)

// ErrAlreadyInitialized is returned by a second Init.
var ErrAlreadyInitialized = errors.New("world already initialized")

// EngineConfig configures a world. Zero fields fall back to the defaults in
// tuning.go.
type EngineConfig struct {
	WorldWidth    uint32
	WorldHeight   uint32
	MaxFood       uint32
	DecayInterval time.Duration
	MergeDelay    time.Duration
	Seed          int64     // 0 picks a time-based seed
	Scheduler     Scheduler // nil uses a TimerScheduler
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.WorldWidth == 0 {
		c.WorldWidth = DefaultWorldWidth
	}
	if c.WorldHeight == 0 {
		c.WorldHeight = DefaultWorldHeight
	}
	if c.MaxFood == 0 {
		c.MaxFood = DefaultMaxFood
	}
	if c.DecayInterval <= 0 {
		c.DecayInterval = DefaultDecayInterval
	}
	if c.MergeDelay <= 0 {
		c.MergeDelay = DefaultMergeDelay
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Engine owns the world store and runs every handler as one transaction
// against it. Handlers return whether they changed anything; a declined
// request leaves the world untouched and is not an error.
type Engine struct {
	store     *Store
	scheduler Scheduler
	eventLog  *EventLog
	cfg       EngineConfig

	// Only touched inside store transactions.
	rng *rand.Rand

	snapshot atomic.Pointer[WorldSnapshot]
}

// NewEngine creates an engine over an empty store. Call Init before serving.
func NewEngine(cfg EngineConfig) *Engine {
	cfg = cfg.withDefaults()

	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}

	return &Engine{
		store:     NewStore(),
		scheduler: scheduler,
		eventLog:  NewEventLog(),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Store exposes the underlying store for replication and tests.
func (e *Engine) Store() *Store {
	return e.store
}

// Scheduler returns the timer collaborator in use.
func (e *Engine) Scheduler() Scheduler {
	return e.scheduler
}

// Init writes GameConfig, seeds MaxFood pellets and starts the repeating
// decay timer.
func (e *Engine) Init() error {
	var err error
	e.store.Update(func(tx *Tx) {
		if _, ok := tx.Config(); ok {
			err = ErrAlreadyInitialized
			return
		}

		cfg := GameConfig{
			MaxFood:     e.cfg.MaxFood,
			WorldWidth:  e.cfg.WorldWidth,
			WorldHeight: e.cfg.WorldHeight,
		}
		tx.PutConfig(cfg)

		for i := uint32(0); i < cfg.MaxFood; i++ {
			e.spawnFood(tx, cfg)
		}

		decay := tx.PutDecaySchedule(DecaySchedule{Interval: e.cfg.DecayInterval})
		tx.AfterCommit(func() {
			e.scheduler.Every(decay.Interval, func() { e.DecayTick() })
		})

		e.eventLog.Record(EventTypeInit, "", tx.CommitVersion(), InitPayload{
			WorldWidth:  cfg.WorldWidth,
			WorldHeight: cfg.WorldHeight,
			Food:        tx.FoodCount(),
		})
		log.Printf("🌍 World initialized: %dx%d, %d food, decay every %v",
			cfg.WorldWidth, cfg.WorldHeight, cfg.MaxFood, decay.Interval)
	})
	return err
}

// transact runs fn as one store transaction and records its outcome.
func (e *Engine) transact(reducer string, fn func(tx *Tx) bool) bool {
	start := time.Now()
	var applied bool
	e.store.Update(func(tx *Tx) {
		applied = fn(tx)
	})
	metrics.RecordReducer(reducer, applied, time.Since(start))
	return applied
}

// randRange draws uniformly from [lo, hi). Must be called inside a transaction.
func (e *Engine) randRange(lo, hi float64) float64 {
	if hi <= lo {
		return (lo + hi) / 2
	}
	return lo + e.rng.Float64()*(hi-lo)
}

// spawnFood inserts one pellet at a random position inside the food margin.
func (e *Engine) spawnFood(tx *Tx, cfg GameConfig) FoodPellet {
	return tx.PutFood(FoodPellet{
		X:      e.randRange(FoodMargin, float64(cfg.WorldWidth)-FoodMargin),
		Y:      e.randRange(FoodMargin, float64(cfg.WorldHeight)-FoodMargin),
		Radius: FoodRadius,
	})
}

// StartEventLog begins journaling applied mutations to filePath.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the journal.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns journal counters.
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// Config returns the world configuration, false before Init.
func (e *Engine) Config() (GameConfig, bool) {
	var cfg GameConfig
	var ok bool
	e.store.View(func(tx *Tx) {
		cfg, ok = tx.Config()
	})
	return cfg, ok
}

// GetPlayer returns a copy of the player row.
func (e *Engine) GetPlayer(id Identity) (Player, bool) {
	var p Player
	var ok bool
	e.store.View(func(tx *Tx) {
		p, ok = tx.Player(id)
	})
	return p, ok
}

// GetCells returns copies of the split cells owned by id.
func (e *Engine) GetCells(id Identity) []PlayerCell {
	var cells []PlayerCell
	e.store.View(func(tx *Tx) {
		cells = tx.CellsOf(id)
	})
	return cells
}

// CellState is a player's position in the split/merge state machine.
type CellState uint8

const (
	StateWhole CellState = iota // No split cell exists
	StateSplit                  // One split cell exists until merge or removal
)

func (s CellState) String() string {
	if s == StateSplit {
		return "split"
	}
	return "whole"
}

// SplitState reports the state machine position for id; false if there is
// no such player.
func (e *Engine) SplitState(id Identity) (CellState, bool) {
	state := StateWhole
	var ok bool
	e.store.View(func(tx *Tx) {
		if _, ok = tx.Player(id); !ok {
			return
		}
		if len(tx.CellsOf(id)) > 0 {
			state = StateSplit
		}
	})
	return state, ok
}
