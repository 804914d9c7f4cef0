package game

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Identity is the opaque token a transport assigns to each caller.
type Identity string

// NewIdentity returns a fresh random identity.
func NewIdentity() Identity {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("identity: crypto/rand failed: " + err.Error())
	}
	return Identity(hex.EncodeToString(b[:]))
}

// GameConfig is the world singleton (ID 0), written once by Init.
type GameConfig struct {
	ID          uint32 `json:"id" msgpack:"id"`
	MaxFood     uint32 `json:"maxFood" msgpack:"maxFood"`
	WorldWidth  uint32 `json:"worldWidth" msgpack:"worldWidth"`
	WorldHeight uint32 `json:"worldHeight" msgpack:"worldHeight"`
}

// Player is the main cell of a connected caller.
type Player struct {
	Identity Identity `json:"identity" msgpack:"identity"`
	Name     string   `json:"name" msgpack:"name"`
	X        float64  `json:"x" msgpack:"x"`
	Y        float64  `json:"y" msgpack:"y"`
	Radius   float64  `json:"radius" msgpack:"radius"`
	Mass     float64  `json:"mass" msgpack:"mass"`
	Color    uint32   `json:"color" msgpack:"color"`
}

// withMass returns a copy with mass and the derived radius replaced.
func (p Player) withMass(mass float64) Player {
	p.Mass = mass
	p.Radius = MassToRadius(mass)
	return p
}

// PlayerCell is the split-off half of a player's mass. Owner is not a
// store-enforced foreign key; handlers check it.
type PlayerCell struct {
	CellID uint64   `json:"cellId" msgpack:"cellId"`
	Owner  Identity `json:"owner" msgpack:"owner"`
	X      float64  `json:"x" msgpack:"x"`
	Y      float64  `json:"y" msgpack:"y"`
	Radius float64  `json:"radius" msgpack:"radius"`
	Mass   float64  `json:"mass" msgpack:"mass"`
}

func (c PlayerCell) withMass(mass float64) PlayerCell {
	c.Mass = mass
	c.Radius = MassToRadius(mass)
	return c
}

// FoodPellet is a fixed-size pellet worth FoodMassGain.
type FoodPellet struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
}

// EjectedMass is a pellet voluntarily emitted by a player.
type EjectedMass struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
	Mass   float64 `json:"mass" msgpack:"mass"`
}

// DecaySchedule is the repeating decay timer row.
type DecaySchedule struct {
	ScheduleID uint64        `json:"scheduleId"`
	Interval   time.Duration `json:"interval"`
}

// MergeSchedule is a one-shot timer that folds Owner's split cells back in.
type MergeSchedule struct {
	ScheduleID uint64    `json:"scheduleId"`
	At         time.Time `json:"at"`
	Owner      Identity  `json:"owner"`
}
