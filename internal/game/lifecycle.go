package game

import (
	"log"
	"strings"
	"unicode/utf8"
)

// OnConnect is the transport's connect hook. Spawning is a separate action,
// so nothing changes here.
func (e *Engine) OnConnect(id Identity) {
	log.Printf("🔌 Connected: %s", shortID(id))
}

// OnDisconnect removes the caller's player and split cells.
func (e *Engine) OnDisconnect(id Identity) bool {
	return e.transact(ReducerDisconnect, func(tx *Tx) bool {
		return e.removePlayer(tx, id, "disconnect")
	})
}

// SpawnPlayer (re)creates the caller's player at a random position with
// base mass. Any stale player row and split cells are cleared first, so a
// repeated spawn always leaves exactly one fresh player.
func (e *Engine) SpawnPlayer(id Identity, name string) bool {
	return e.transact(ReducerSpawnPlayer, func(tx *Tx) bool {
		cfg, ok := tx.Config()
		if !ok {
			return false
		}

		tx.DeletePlayer(id)
		tx.DeleteCellsOf(id)

		p := Player{
			Identity: id,
			Name:     sanitizeName(name),
			X:        e.randRange(SpawnMargin, float64(cfg.WorldWidth)-SpawnMargin),
			Y:        e.randRange(SpawnMargin, float64(cfg.WorldHeight)-SpawnMargin),
			Color:    Palette[e.rng.Intn(len(Palette))],
		}.withMass(BaseMass)
		tx.PutPlayer(p)

		e.eventLog.Record(EventTypeSpawn, id, tx.CommitVersion(), SpawnPayload{
			Name: p.Name, X: p.X, Y: p.Y, Color: p.Color,
		})
		log.Printf("👤 Player spawned: %s (%s)", p.Name, shortID(id))
		return true
	})
}

// DespawnPlayer removes the caller's player and split cells.
func (e *Engine) DespawnPlayer(id Identity) bool {
	return e.transact(ReducerDespawnPlayer, func(tx *Tx) bool {
		return e.removePlayer(tx, id, "despawn")
	})
}

// removePlayer deletes the player row and every cell it owns. Orphaned cells
// are removed even when the player row is already gone.
func (e *Engine) removePlayer(tx *Tx, id Identity, reason string) bool {
	removed := tx.DeletePlayer(id)
	cells := len(tx.CellsOf(id))
	tx.DeleteCellsOf(id)
	if !removed && cells == 0 {
		return false
	}
	e.eventLog.Record(EventTypeDespawn, id, tx.CommitVersion(), DespawnPayload{Reason: reason})
	return true
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Cell"
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		runes := []rune(name)
		name = string(runes[:MaxNameLength])
	}
	return name
}

// shortID trims an identity for log lines.
func shortID(id Identity) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
