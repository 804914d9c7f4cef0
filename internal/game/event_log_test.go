package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	e, _ := newQuietEngine(t)
	if err := e.StartEventLog(path); err != nil {
		t.Fatalf("StartEventLog failed: %v", err)
	}
	e.SpawnPlayer("alice", "Alice")
	placePlayer(e, "alice", 1000, 1000, 400)
	e.SplitCell("alice", 1, 0)
	e.DespawnPlayer("alice")
	e.StopEventLog()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open journal: %v", err)
	}
	defer file.Close()

	var types []string
	var lastSeq uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line struct {
			Type     string          `json:"type"`
			Sequence uint64          `json:"sequence"`
			Identity string          `json:"identity"`
			Payload  json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("Bad journal line %q: %v", scanner.Text(), err)
		}
		if line.Sequence <= lastSeq {
			t.Errorf("Sequence not increasing: %d after %d", line.Sequence, lastSeq)
		}
		lastSeq = line.Sequence
		types = append(types, line.Type)
	}

	want := []string{"spawn", "split", "despawn"}
	if len(types) != len(want) {
		t.Fatalf("Expected types %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Line %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

func TestEventLogEmitBeforeStart(t *testing.T) {
	el := NewEventLog()
	if el.Emit(NewEvent(EventTypeSpawn, "alice", nil)) {
		t.Error("Emit before Start should report a drop")
	}
}

func TestEventLogInMemory(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		el.Record(EventTypeDecay, "", uint64(i), DecayPayload{Players: i})
	}
	el.Stop()

	if el.Written() != 10 {
		t.Errorf("Expected 10 written, got %d", el.Written())
	}
	stats := el.GetStats()
	if stats["running"] != false {
		t.Error("Journal should report stopped")
	}
}

func TestEventLogRecordsEveryAppliedMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	e, _ := newQuietEngine(t)
	placePlayer(e, "alice", 1000, 1000, BaseMass)
	cell := placeCell(e, "alice", 1100, 1000, MinCellMass)
	pellets := make([]FoodPellet, 30)
	for i := range pellets {
		pellets[i] = placeFood(e, 1000, 1010)
	}
	start := e.Store().Version()

	if err := e.StartEventLog(path); err != nil {
		t.Fatalf("StartEventLog failed: %v", err)
	}
	for _, f := range pellets {
		if !e.EatFood("alice", f.ID) {
			t.Fatalf("EatFood %d should apply", f.ID)
		}
	}
	if !e.UpdatePosition("alice", 1200, 1200) {
		t.Fatal("UpdatePosition should apply")
	}
	if !e.UpdateCellPosition("alice", cell.CellID, 1300, 1200) {
		t.Fatal("UpdateCellPosition should apply")
	}
	e.StopEventLog()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open journal: %v", err)
	}
	defer file.Close()

	type journalLine struct {
		Type     string `json:"type"`
		StoreVer uint64 `json:"storeVersion"`
		Payload  struct {
			CellID uint64  `json:"cellId"`
			X      float64 `json:"x"`
		} `json:"payload"`
	}
	var lines []journalLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line journalLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("Bad journal line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}

	want := len(pellets) + 2
	if len(lines) != want {
		t.Fatalf("Expected %d journal lines, got %d", want, len(lines))
	}
	for i, line := range lines {
		if line.StoreVer != start+uint64(i)+1 {
			t.Errorf("Line %d: store version %d, expected %d", i, line.StoreVer, start+uint64(i)+1)
		}
	}

	player, cellMove := lines[want-2], lines[want-1]
	if player.Type != "move" || player.Payload.CellID != 0 || player.Payload.X != 1200 {
		t.Errorf("Unexpected player move line %+v", player)
	}
	if cellMove.Type != "move" || cellMove.Payload.CellID != cell.CellID || cellMove.Payload.X != 1300 {
		t.Errorf("Unexpected cell move line %+v", cellMove)
	}

	stats := e.GetEventLogStats()
	if stats["dropped"] != uint64(0) {
		t.Errorf("No applied mutation should be dropped, got %v", stats["dropped"])
	}
}

func TestEventLogBurstLargerThanBuffer(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	n := JournalBufferSize * 3
	for i := 0; i < n; i++ {
		if !el.Emit(NewEvent(EventTypeEatFood, "alice", nil)) {
			t.Fatalf("Emit %d should not drop while running", i)
		}
	}
	el.Stop()

	if el.Written() != uint64(n) {
		t.Errorf("Expected %d written, got %d", n, el.Written())
	}
	if el.Dropped() != 0 {
		t.Errorf("Expected no drops, got %d", el.Dropped())
	}
}

func TestEventTypeNames(t *testing.T) {
	data, err := json.Marshal(NewEvent(EventTypeEatPlayer, "a", EatPlayerPayload{Target: "b"}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)
	if decoded["type"] != "eat_player" {
		t.Errorf("Expected type eat_player, got %v", decoded["type"])
	}
	if EventType(200).String() != "unknown" {
		t.Error("Out-of-range type should stringify as unknown")
	}
}
