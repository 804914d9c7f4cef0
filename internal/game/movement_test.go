package game

import (
	"math"
	"testing"
)

func TestUpdatePositionClampsToWorld(t *testing.T) {
	e, _ := newTestEngine(t)
	placePlayer(e, "alice", 500, 500, BaseMass)
	r := MassToRadius(BaseMass)

	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{"inside", 1000, 1200, 1000, 1200},
		{"below zero", -50, -50, r, r},
		{"past far edge", 5000, 3100, DefaultWorldWidth - r, DefaultWorldHeight - r},
		{"on the boundary", r, DefaultWorldHeight - r, r, DefaultWorldHeight - r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !e.UpdatePosition("alice", tt.x, tt.y) {
				t.Fatal("UpdatePosition should apply")
			}
			p := mustPlayer(t, e, "alice")
			if p.X != tt.wantX || p.Y != tt.wantY {
				t.Errorf("Expected (%v,%v), got (%v,%v)", tt.wantX, tt.wantY, p.X, p.Y)
			}
			if p.Mass != BaseMass || p.Radius != r {
				t.Errorf("Movement must not touch mass/radius, got %v/%v", p.Mass, p.Radius)
			}
		})
	}
}

func TestUpdatePositionUnknownPlayer(t *testing.T) {
	e, _ := newTestEngine(t)

	if e.UpdatePosition("ghost", 10, 10) {
		t.Error("UpdatePosition for unknown player should decline")
	}
}

func TestUpdatePositionRejectsNonFinite(t *testing.T) {
	e, _ := newTestEngine(t)
	placePlayer(e, "alice", 500, 500, BaseMass)

	if e.UpdatePosition("alice", math.NaN(), 10) {
		t.Error("NaN coordinates should be declined")
	}
	if e.UpdatePosition("alice", 10, math.Inf(-1)) {
		t.Error("Infinite coordinates should be declined")
	}
	if p := mustPlayer(t, e, "alice"); p.X != 500 || p.Y != 500 {
		t.Errorf("Position should be unchanged, got (%v,%v)", p.X, p.Y)
	}
}

func TestUpdateCellPositionRequiresOwnership(t *testing.T) {
	e, _ := newTestEngine(t)
	placePlayer(e, "alice", 500, 500, 200)
	placePlayer(e, "mallory", 900, 900, 200)
	cell := placeCell(e, "alice", 600, 600, 100)

	if e.UpdateCellPosition("mallory", cell.CellID, 10, 10) {
		t.Error("Moving someone else's cell must be declined")
	}
	var got PlayerCell
	e.Store().View(func(tx *Tx) { got, _ = tx.Cell(cell.CellID) })
	if got.X != 600 || got.Y != 600 {
		t.Errorf("Spoofed move changed the cell: (%v,%v)", got.X, got.Y)
	}

	if !e.UpdateCellPosition("alice", cell.CellID, -100, 700) {
		t.Fatal("Owner move should apply")
	}
	e.Store().View(func(tx *Tx) { got, _ = tx.Cell(cell.CellID) })
	if got.X != cell.Radius || got.Y != 700 {
		t.Errorf("Expected (%v,700), got (%v,%v)", cell.Radius, got.X, got.Y)
	}
	if got.Mass != 100 {
		t.Errorf("Cell mass must be untouched, got %v", got.Mass)
	}
}

func TestUpdateCellPositionUnknownCell(t *testing.T) {
	e, _ := newTestEngine(t)
	placePlayer(e, "alice", 500, 500, 200)

	if e.UpdateCellPosition("alice", 999, 10, 10) {
		t.Error("Unknown cell should be declined")
	}
}

func TestOversizedPlayerStaysCentred(t *testing.T) {
	sched := newManualScheduler()
	e := NewEngine(EngineConfig{WorldWidth: 100, WorldHeight: 100, MaxFood: 1, Seed: 3, Scheduler: sched})
	if err := e.Init(); err != nil {
		t.Fatal(err)
	}
	placePlayer(e, "giant", 50, 50, 10000) // radius 200, wider than the world

	e.UpdatePosition("giant", 0, 100)
	p := mustPlayer(t, e, "giant")
	if p.X != 50 || p.Y != 50 {
		t.Errorf("Oversized player should be held at the centre, got (%v,%v)", p.X, p.Y)
	}
}
