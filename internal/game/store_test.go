package game

import "testing"

func TestStoreKeysAreMonotonicAndNeverReused(t *testing.T) {
	s := NewStore()

	var first, second, third FoodPellet
	s.Update(func(tx *Tx) {
		first = tx.PutFood(FoodPellet{X: 1, Y: 1})
		second = tx.PutFood(FoodPellet{X: 2, Y: 2})
		tx.DeleteFood(second.ID)
		third = tx.PutFood(FoodPellet{X: 3, Y: 3})
	})

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("Expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if third.ID != 3 {
		t.Errorf("Deleted key must not be reused: got %d, want 3", third.ID)
	}
}

func TestStoreExplicitKeyAdvancesCounter(t *testing.T) {
	s := NewStore()

	var next PlayerCell
	s.Update(func(tx *Tx) {
		tx.PutCell(PlayerCell{CellID: 10, Owner: "a"})
		next = tx.PutCell(PlayerCell{Owner: "a"})
	})

	if next.CellID != 11 {
		t.Errorf("Expected allocated id 11 after explicit 10, got %d", next.CellID)
	}
}

func TestStoreKindsHaveIndependentCounters(t *testing.T) {
	s := NewStore()

	var food FoodPellet
	var ejected EjectedMass
	var cell PlayerCell
	s.Update(func(tx *Tx) {
		food = tx.PutFood(FoodPellet{})
		ejected = tx.PutEjected(EjectedMass{})
		cell = tx.PutCell(PlayerCell{Owner: "x"})
	})

	if food.ID != 1 || ejected.ID != 1 || cell.CellID != 1 {
		t.Errorf("Expected every kind to start at 1, got food=%d ejected=%d cell=%d",
			food.ID, ejected.ID, cell.CellID)
	}
}

func TestStorePutPlayerReplaces(t *testing.T) {
	s := NewStore()

	s.Update(func(tx *Tx) {
		tx.PutPlayer(Player{Identity: "a", Name: "first"})
		tx.PutPlayer(Player{Identity: "a", Name: "second"})
	})

	s.View(func(tx *Tx) {
		if n := tx.PlayerCount(); n != 1 {
			t.Errorf("Expected 1 player after upsert, got %d", n)
		}
		p, _ := tx.Player("a")
		if p.Name != "second" {
			t.Errorf("Expected replaced name 'second', got '%s'", p.Name)
		}
	})
}

func TestStoreScansAreSortedByKey(t *testing.T) {
	s := NewStore()

	s.Update(func(tx *Tx) {
		tx.PutPlayer(Player{Identity: "c"})
		tx.PutPlayer(Player{Identity: "a"})
		tx.PutPlayer(Player{Identity: "b"})
	})

	s.View(func(tx *Tx) {
		players := tx.Players()
		for i, want := range []Identity{"a", "b", "c"} {
			if players[i].Identity != want {
				t.Errorf("players[%d] = %s, want %s", i, players[i].Identity, want)
			}
		}
	})
}

func TestStoreVersionOnlyBumpsOnWrite(t *testing.T) {
	s := NewStore()

	s.Update(func(tx *Tx) {})
	if v := s.Version(); v != 0 {
		t.Errorf("Read-only update should not bump version, got %d", v)
	}

	s.Update(func(tx *Tx) {
		if tx.CommitVersion() != 0 {
			t.Errorf("CommitVersion before any write should be 0")
		}
		tx.PutFood(FoodPellet{})
		if tx.CommitVersion() != 1 {
			t.Errorf("CommitVersion after a write should be 1")
		}
	})
	if v := s.Version(); v != 1 {
		t.Errorf("Expected version 1, got %d", v)
	}

	s.Update(func(tx *Tx) {
		tx.DeletePlayer("nobody")
	})
	if v := s.Version(); v != 1 {
		t.Errorf("Deleting a missing row is not a write, got version %d", v)
	}
}

func TestStoreAfterCommitRunsOutsideLock(t *testing.T) {
	s := NewStore()

	ran := false
	s.Update(func(tx *Tx) {
		tx.PutFood(FoodPellet{})
		tx.AfterCommit(func() {
			// Would deadlock if the hook ran under the store mutex.
			s.Update(func(tx *Tx) {
				tx.PutFood(FoodPellet{})
			})
			ran = true
		})
	})

	if !ran {
		t.Fatal("AfterCommit hook did not run")
	}
	s.View(func(tx *Tx) {
		if tx.FoodCount() != 2 {
			t.Errorf("Expected 2 food rows, got %d", tx.FoodCount())
		}
	})
}

func TestStoreViewRejectsWrites(t *testing.T) {
	s := NewStore()

	defer func() {
		if recover() == nil {
			t.Error("Writing inside View should panic")
		}
	}()
	s.View(func(tx *Tx) {
		tx.PutFood(FoodPellet{})
	})
}

func TestStoreDeleteCellsOf(t *testing.T) {
	s := NewStore()

	var freed float64
	s.Update(func(tx *Tx) {
		tx.PutCell(PlayerCell{Owner: "a", Mass: 60})
		tx.PutCell(PlayerCell{Owner: "a", Mass: 40})
		tx.PutCell(PlayerCell{Owner: "b", Mass: 70})
		freed = tx.DeleteCellsOf("a")
	})

	if freed != 100 {
		t.Errorf("Expected freed mass 100, got %v", freed)
	}
	s.View(func(tx *Tx) {
		if n := len(tx.CellsOf("a")); n != 0 {
			t.Errorf("Expected no cells for a, got %d", n)
		}
		if n := len(tx.CellsOf("b")); n != 1 {
			t.Errorf("Cells of b must survive, got %d", n)
		}
	})
}

func TestStoreConfigSingleton(t *testing.T) {
	s := NewStore()

	s.View(func(tx *Tx) {
		if _, ok := tx.Config(); ok {
			t.Error("Config should be absent before it is written")
		}
	})

	s.Update(func(tx *Tx) {
		tx.PutConfig(GameConfig{ID: 9, MaxFood: 5, WorldWidth: 10, WorldHeight: 20})
	})

	s.View(func(tx *Tx) {
		cfg, ok := tx.Config()
		if !ok || cfg.ID != 0 || cfg.MaxFood != 5 {
			t.Errorf("Expected singleton with id 0, got %+v", cfg)
		}
	})
}
