package game

import (
	"sort"
	"time"

	"cell-arena/internal/metrics"
)

// WorldSnapshot is a full copy of every public table at one store version.
// Snapshots are shared between readers and must be treated as immutable.
type WorldSnapshot struct {
	Version   uint64        `json:"version" msgpack:"version"`
	Timestamp int64         `json:"timestamp" msgpack:"timestamp"` // Unix milli
	Config    GameConfig    `json:"config" msgpack:"config"`
	Players   []Player      `json:"players" msgpack:"players"`
	Cells     []PlayerCell  `json:"cells" msgpack:"cells"`
	Food      []FoodPellet  `json:"food" msgpack:"food"`
	Ejected   []EjectedMass `json:"ejected" msgpack:"ejected"`
}

// Snapshot returns the world as of now. Consecutive calls with no write in
// between return the same cached value without rescanning the store.
func (e *Engine) Snapshot() *WorldSnapshot {
	var snap *WorldSnapshot
	e.store.View(func(tx *Tx) {
		if cached := e.snapshot.Load(); cached != nil && cached.Version == tx.Version() {
			snap = cached
			return
		}
		cfg, _ := tx.Config()
		snap = &WorldSnapshot{
			Version:   tx.Version(),
			Timestamp: time.Now().UnixMilli(),
			Config:    cfg,
			Players:   tx.Players(),
			Cells:     tx.Cells(),
			Food:      tx.Foods(),
			Ejected:   tx.EjectedMasses(),
		}
		e.snapshot.Store(snap)
	})
	return snap
}

// Player looks up a player in the snapshot.
func (s *WorldSnapshot) Player(id Identity) (Player, bool) {
	i := sort.Search(len(s.Players), func(i int) bool { return s.Players[i].Identity >= id })
	if i < len(s.Players) && s.Players[i].Identity == id {
		return s.Players[i], true
	}
	return Player{}, false
}

// CellsOf returns the snapshot's split cells owned by id.
func (s *WorldSnapshot) CellsOf(id Identity) []PlayerCell {
	var owned []PlayerCell
	for _, c := range s.Cells {
		if c.Owner == id {
			owned = append(owned, c)
		}
	}
	return owned
}

// LeaderboardEntry ranks a player by total mass across its cells.
type LeaderboardEntry struct {
	Rank      int      `json:"rank" msgpack:"rank"`
	Identity  Identity `json:"identity" msgpack:"identity"`
	Name      string   `json:"name" msgpack:"name"`
	TotalMass float64  `json:"totalMass" msgpack:"totalMass"`
}

// Leaderboard returns the top n players by total mass, heaviest first.
// Ties break on name, then identity, for a stable order.
func (s *WorldSnapshot) Leaderboard(n int) []LeaderboardEntry {
	cellMass := make(map[Identity]float64, len(s.Cells))
	for _, c := range s.Cells {
		cellMass[c.Owner] += c.Mass
	}

	entries := make([]LeaderboardEntry, 0, len(s.Players))
	for _, p := range s.Players {
		entries = append(entries, LeaderboardEntry{
			Identity:  p.Identity,
			Name:      p.Name,
			TotalMass: p.Mass + cellMass[p.Identity],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalMass != entries[j].TotalMass {
			return entries[i].TotalMass > entries[j].TotalMass
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Identity < entries[j].Identity
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// publishGauges pushes entity counts to the metrics package.
func (e *Engine) publishGauges() {
	e.store.View(func(tx *Tx) {
		metrics.UpdateWorld(tx.PlayerCount(), len(tx.s.cells), tx.FoodCount(), len(tx.s.ejected))
	})
}
