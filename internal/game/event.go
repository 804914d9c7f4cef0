package game

import (
	"encoding/json"
	"time"
)

// EventType classifies journal entries.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeInit
	EventTypeSpawn
	EventTypeDespawn
	EventTypeEatFood
	EventTypeEatPlayer
	EventTypeEatEjected
	EventTypeEject
	EventTypeSplit
	EventTypeMerge
	EventTypeDecay
	EventTypeMove
)

// EventVersion is bumped when a payload shape changes.
const EventVersion uint8 = 1

// Event is one journal line.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	StoreVer  uint64          `json:"storeVersion"` // Store version the mutation produced
	Identity  Identity        `json:"identity,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t EventType) String() string {
	switch t {
	case EventTypeInit:
		return "init"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDespawn:
		return "despawn"
	case EventTypeEatFood:
		return "eat_food"
	case EventTypeEatPlayer:
		return "eat_player"
	case EventTypeEatEjected:
		return "eat_ejected_mass"
	case EventTypeEject:
		return "eject_mass"
	case EventTypeSplit:
		return "split"
	case EventTypeMerge:
		return "merge"
	case EventTypeDecay:
		return "decay"
	case EventTypeMove:
		return "move"
	default:
		return "unknown"
	}
}

// MarshalText lets the journal write readable type names.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads

type InitPayload struct {
	WorldWidth  uint32 `json:"worldWidth"`
	WorldHeight uint32 `json:"worldHeight"`
	Food        int    `json:"food"`
}

type SpawnPayload struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color uint32  `json:"color"`
}

type DespawnPayload struct {
	Reason string `json:"reason"` // "despawn", "disconnect", "eaten"
}

type EatFoodPayload struct {
	FoodID     uint64  `json:"foodId"`
	ReplacedBy uint64  `json:"replacedBy"`
	MassAfter  float64 `json:"massAfter"`
}

type EatPlayerPayload struct {
	Target     Identity `json:"target"`
	Absorbed   float64  `json:"absorbed"`
	CellsFreed int      `json:"cellsFreed"`
	MassAfter  float64  `json:"massAfter"`
}

type EatEjectedPayload struct {
	MassID    uint64  `json:"massId"`
	Gained    float64 `json:"gained"`
	MassAfter float64 `json:"massAfter"`
}

type EjectPayload struct {
	MassID    uint64  `json:"massId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	MassAfter float64 `json:"massAfter"`
}

type SplitPayload struct {
	CellID     uint64    `json:"cellId"`
	HalfMass   float64   `json:"halfMass"`
	MergeAt    time.Time `json:"mergeAt"`
	ScheduleID uint64    `json:"scheduleId"`
}

type MergePayload struct {
	ScheduleID uint64  `json:"scheduleId"`
	Cells      int     `json:"cells"`
	Merged     float64 `json:"merged"`
	OwnerAlive bool    `json:"ownerAlive"`
}

// MovePayload carries the clamped position. CellID is zero for the player
// circle itself.
type MovePayload struct {
	CellID uint64  `json:"cellId,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type DecayPayload struct {
	Players int `json:"players"`
	Cells   int `json:"cells"`
}

// NewEvent stamps an event with the current time. Sequence is assigned by
// the journal.
func NewEvent(eventType EventType, identity Identity, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Identity:  identity,
		Payload:   data,
	}
}
