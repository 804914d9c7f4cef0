package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"cell-arena/internal/metrics"
)

// Reducer names as they appear on the wire.
const (
	ReducerSpawnPlayer        = "spawn_player"
	ReducerDespawnPlayer      = "despawn_player"
	ReducerUpdatePosition     = "update_position"
	ReducerUpdateCellPosition = "update_cell_position"
	ReducerEatFood            = "eat_food"
	ReducerEatPlayer          = "eat_player"
	ReducerEatEjectedMass     = "eat_ejected_mass"
	ReducerEjectMass          = "eject_mass"
	ReducerSplitCell          = "split_cell"

	// Hooks and timers; not callable through Dispatch.
	ReducerDisconnect = "on_disconnect"
	ReducerDecayTick  = "decay_tick"
	ReducerMergeTick  = "merge_tick"
)

var (
	// ErrUnknownReducer is returned for a reducer name Dispatch does not route.
	ErrUnknownReducer = errors.New("unknown reducer")
	// ErrBadArgs wraps argument decoding failures.
	ErrBadArgs = errors.New("bad reducer arguments")
)

// Request is one client call: a reducer name and its JSON arguments.
type Request struct {
	Reducer string          `json:"reducer"`
	Args    json.RawMessage `json:"args"`
}

// Argument shapes, one per reducer.

type SpawnArgs struct {
	Name string `json:"name"`
}

type PositionArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CellPositionArgs struct {
	CellID uint64  `json:"cellId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type EatFoodArgs struct {
	FoodID uint64 `json:"foodId"`
}

type EatPlayerArgs struct {
	Target Identity `json:"target"`
}

type EatEjectedArgs struct {
	MassID uint64 `json:"massId"`
}

type DirectionArgs struct {
	DirX float64 `json:"dirX"`
	DirY float64 `json:"dirY"`
}

// Dispatch routes a caller request to its handler. The returned bool is
// whether the world changed; a declined request is not an error. Errors are
// reserved for requests that cannot be routed or decoded.
func (e *Engine) Dispatch(id Identity, req Request) (bool, error) {
	applied, err := e.route(id, req)
	if err != nil {
		metrics.RecordReducerError(metricReducerName(req.Reducer))
	}
	return applied, err
}

func (e *Engine) route(id Identity, req Request) (bool, error) {
	switch req.Reducer {
	case ReducerSpawnPlayer:
		var args SpawnArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.SpawnPlayer(id, args.Name), nil

	case ReducerDespawnPlayer:
		return e.DespawnPlayer(id), nil

	case ReducerUpdatePosition:
		var args PositionArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.UpdatePosition(id, args.X, args.Y), nil

	case ReducerUpdateCellPosition:
		var args CellPositionArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.UpdateCellPosition(id, args.CellID, args.X, args.Y), nil

	case ReducerEatFood:
		var args EatFoodArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.EatFood(id, args.FoodID), nil

	case ReducerEatPlayer:
		var args EatPlayerArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.EatPlayer(id, args.Target), nil

	case ReducerEatEjectedMass:
		var args EatEjectedArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.EatEjectedMass(id, args.MassID), nil

	case ReducerEjectMass:
		var args DirectionArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.EjectMass(id, args.DirX, args.DirY), nil

	case ReducerSplitCell:
		var args DirectionArgs
		if err := decodeArgs(req, &args); err != nil {
			return false, err
		}
		return e.SplitCell(id, args.DirX, args.DirY), nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownReducer, req.Reducer)
	}
}

// decodeArgs unmarshals req.Args into v. Missing args decode as zero values.
func decodeArgs(req Request, v interface{}) error {
	if len(req.Args) == 0 || string(req.Args) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Args, v); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrBadArgs, req.Reducer, err)
	}
	return nil
}

// metricReducerName keeps metric labels bounded.
func metricReducerName(name string) string {
	switch name {
	case ReducerSpawnPlayer, ReducerDespawnPlayer, ReducerUpdatePosition,
		ReducerUpdateCellPosition, ReducerEatFood, ReducerEatPlayer,
		ReducerEatEjectedMass, ReducerEjectMass, ReducerSplitCell:
		return name
	default:
		return "unknown"
	}
}
