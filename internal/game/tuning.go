package game

import "time"

// World defaults. GameConfig carries the live values once Init has run.
const (
	DefaultWorldWidth  = 3000
	DefaultWorldHeight = 3000
	DefaultMaxFood     = 200
)

// Mass economy
const (
	BaseMass        = 100.0 // Spawn mass and decay floor for players
	MinCellMass     = BaseMass / 2
	EjectMassAmount = 10.0
	MinSplitMass    = 200.0
	MassDecayRate   = 0.998
	FoodMassGain    = 1.0
	RadiusFactor    = 2.0
)

// Proximity and placement
const (
	EatTolerance       = 2.0 // Leeway for replication latency
	SizeAdvantage      = 1.1 // Eater must be 10% heavier than target
	FoodRadius         = 6.0
	FoodMargin         = 20.0
	SpawnMargin        = 100.0
	SplitMargin        = 50.0
	EjectDistance      = 300.0
	SplitOffsetFactor  = 2.5
	MinDirectionLength = 0.001
	MaxNameLength      = 32
)

// Timers
const (
	DefaultDecayInterval = 2 * time.Second
	DefaultMergeDelay    = 10 * time.Second
)

// Palette is the fixed set of player colours (RGB).
var Palette = []uint32{
	0x4a90d9, 0xe74c3c, 0x2ecc71, 0xf39c12,
	0x9b59b6, 0x1abc9c, 0xe91e63, 0x00bcd4,
}
