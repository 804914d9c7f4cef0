package game

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// Store is the authoritative collection of every entity row. All access goes
// through Update or View, which serialize on a single mutex, so a handler
// never observes another handler's partial writes.
type Store struct {
	mu sync.Mutex

	config  *GameConfig
	players map[Identity]Player
	cells   map[uint64]PlayerCell
	food    map[uint64]FoodPellet
	ejected map[uint64]EjectedMass
	decay   map[uint64]DecaySchedule
	merges  map[uint64]MergeSchedule

	// Per-kind key counters. Keys start at 1 and are never reused.
	nextCellID     uint64
	nextFoodID     uint64
	nextEjectedID  uint64
	nextScheduleID uint64

	version uint64 // bumped by every transaction that wrote
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		players: make(map[Identity]Player),
		cells:   make(map[uint64]PlayerCell),
		food:    make(map[uint64]FoodPellet),
		ejected: make(map[uint64]EjectedMass),
		decay:   make(map[uint64]DecaySchedule),
		merges:  make(map[uint64]MergeSchedule),
	}
}

// Tx is the handle a handler uses inside one transaction. It must not be
// retained after the callback returns.
type Tx struct {
	s        *Store
	readOnly bool
	dirty    bool
	hooks    []func()
}

// Update runs fn as one indivisible transaction. Hooks registered with
// AfterCommit run once the lock has been released.
func (s *Store) Update(fn func(tx *Tx)) {
	tx := &Tx{s: s}
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(tx)
		if tx.dirty {
			s.version++
		}
	}()
	for _, hook := range tx.hooks {
		hook()
	}
}

// View runs fn with read access under the same serialization as Update.
func (s *Store) View(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s, readOnly: true})
}

// Version returns the number of committed writing transactions.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// AfterCommit defers fn until the transaction has committed and the store
// lock is free. Used for timer registration.
func (tx *Tx) AfterCommit(fn func()) {
	tx.hooks = append(tx.hooks, fn)
}

func (tx *Tx) write() {
	if tx.readOnly {
		panic("store: write in read-only transaction")
	}
	tx.dirty = true
}

// Version returns the store version as seen by this transaction.
func (tx *Tx) Version() uint64 {
	return tx.s.version
}

// sortedRows returns the map values ordered by key.
func sortedRows[K cmp.Ordered, V any](m map[K]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	rows := make([]V, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, m[k])
	}
	return rows
}

// allocate returns the key to use for a row: the requested one when set,
// otherwise the next counter value. Explicit keys advance the counter so
// later allocations stay unique.
func allocate(next *uint64, requested uint64) uint64 {
	if requested == 0 {
		*next++
		return *next
	}
	if requested > *next {
		*next = requested
	}
	return requested
}

// --- GameConfig ---

// Config returns the world configuration row.
func (tx *Tx) Config() (GameConfig, bool) {
	if tx.s.config == nil {
		return GameConfig{}, false
	}
	return *tx.s.config, true
}

// PutConfig writes the singleton row. The ID is forced to 0.
func (tx *Tx) PutConfig(cfg GameConfig) {
	tx.write()
	cfg.ID = 0
	tx.s.config = &cfg
}

// --- Player ---

func (tx *Tx) Player(id Identity) (Player, bool) {
	p, ok := tx.s.players[id]
	return p, ok
}

// PutPlayer inserts or replaces by identity.
func (tx *Tx) PutPlayer(p Player) {
	tx.write()
	tx.s.players[p.Identity] = p
}

func (tx *Tx) DeletePlayer(id Identity) bool {
	if _, ok := tx.s.players[id]; !ok {
		return false
	}
	tx.write()
	delete(tx.s.players, id)
	return true
}

func (tx *Tx) Players() []Player {
	return sortedRows(tx.s.players)
}

func (tx *Tx) PlayerCount() int {
	return len(tx.s.players)
}

// --- PlayerCell ---

func (tx *Tx) Cell(id uint64) (PlayerCell, bool) {
	c, ok := tx.s.cells[id]
	return c, ok
}

// PutCell inserts or replaces by CellID; CellID 0 allocates a new key.
func (tx *Tx) PutCell(c PlayerCell) PlayerCell {
	tx.write()
	c.CellID = allocate(&tx.s.nextCellID, c.CellID)
	tx.s.cells[c.CellID] = c
	return c
}

func (tx *Tx) DeleteCell(id uint64) bool {
	if _, ok := tx.s.cells[id]; !ok {
		return false
	}
	tx.write()
	delete(tx.s.cells, id)
	return true
}

func (tx *Tx) Cells() []PlayerCell {
	return sortedRows(tx.s.cells)
}

// CellsOf returns the split cells owned by id.
func (tx *Tx) CellsOf(id Identity) []PlayerCell {
	var owned []PlayerCell
	for _, c := range tx.Cells() {
		if c.Owner == id {
			owned = append(owned, c)
		}
	}
	return owned
}

// DeleteCellsOf removes every split cell owned by id and returns their
// summed mass.
func (tx *Tx) DeleteCellsOf(id Identity) float64 {
	var mass float64
	for _, c := range tx.CellsOf(id) {
		mass += c.Mass
		tx.DeleteCell(c.CellID)
	}
	return mass
}

// --- FoodPellet ---

func (tx *Tx) Food(id uint64) (FoodPellet, bool) {
	f, ok := tx.s.food[id]
	return f, ok
}

func (tx *Tx) PutFood(f FoodPellet) FoodPellet {
	tx.write()
	f.ID = allocate(&tx.s.nextFoodID, f.ID)
	tx.s.food[f.ID] = f
	return f
}

func (tx *Tx) DeleteFood(id uint64) bool {
	if _, ok := tx.s.food[id]; !ok {
		return false
	}
	tx.write()
	delete(tx.s.food, id)
	return true
}

func (tx *Tx) Foods() []FoodPellet {
	return sortedRows(tx.s.food)
}

func (tx *Tx) FoodCount() int {
	return len(tx.s.food)
}

// --- EjectedMass ---

func (tx *Tx) Ejected(id uint64) (EjectedMass, bool) {
	e, ok := tx.s.ejected[id]
	return e, ok
}

func (tx *Tx) PutEjected(e EjectedMass) EjectedMass {
	tx.write()
	e.ID = allocate(&tx.s.nextEjectedID, e.ID)
	tx.s.ejected[e.ID] = e
	return e
}

func (tx *Tx) DeleteEjected(id uint64) bool {
	if _, ok := tx.s.ejected[id]; !ok {
		return false
	}
	tx.write()
	delete(tx.s.ejected, id)
	return true
}

func (tx *Tx) EjectedMasses() []EjectedMass {
	return sortedRows(tx.s.ejected)
}

// --- Schedules ---
// Both timer queues share one key space.

func (tx *Tx) PutDecaySchedule(d DecaySchedule) DecaySchedule {
	tx.write()
	d.ScheduleID = allocate(&tx.s.nextScheduleID, d.ScheduleID)
	tx.s.decay[d.ScheduleID] = d
	return d
}

func (tx *Tx) DecaySchedules() []DecaySchedule {
	return sortedRows(tx.s.decay)
}

func (tx *Tx) PutMergeSchedule(m MergeSchedule) MergeSchedule {
	tx.write()
	m.ScheduleID = allocate(&tx.s.nextScheduleID, m.ScheduleID)
	tx.s.merges[m.ScheduleID] = m
	return m
}

func (tx *Tx) MergeSchedule(id uint64) (MergeSchedule, bool) {
	m, ok := tx.s.merges[id]
	return m, ok
}

func (tx *Tx) DeleteMergeSchedule(id uint64) bool {
	if _, ok := tx.s.merges[id]; !ok {
		return false
	}
	tx.write()
	delete(tx.s.merges, id)
	return true
}

func (tx *Tx) MergeSchedules() []MergeSchedule {
	return sortedRows(tx.s.merges)
}

// CommitVersion is the version the store will have once this transaction
// commits.
func (tx *Tx) CommitVersion() uint64 {
	if tx.dirty {
		return tx.s.version + 1
	}
	return tx.s.version
}
