package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// =============================================================================
// BENCHMARK SUITE: HANDLER AND REPLICATION HOT PATHS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

func newBenchEngine(b *testing.B, players int) *Engine {
	b.Helper()
	e := NewEngine(EngineConfig{
		Seed:          1,
		DecayInterval: time.Hour,
		Scheduler:     newManualScheduler(),
	})
	if err := e.Init(); err != nil {
		b.Fatalf("Init failed: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < players; i++ {
		id := Identity(fmt.Sprintf("p%04d", i))
		placePlayer(e, id, rng.Float64()*DefaultWorldWidth, rng.Float64()*DefaultWorldHeight, BaseMass+rng.Float64()*500)
	}
	return e
}

// -----------------------------------------------------------------------------
// HANDLER BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkUpdatePosition(b *testing.B) {
	e := newBenchEngine(b, 100)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		e.UpdatePosition("p0001", float64(i%3000), 1500)
	}
}

func BenchmarkDecayTick_100Players(b *testing.B)  { benchmarkDecayTick(b, 100) }
func BenchmarkDecayTick_1000Players(b *testing.B) { benchmarkDecayTick(b, 1000) }

func benchmarkDecayTick(b *testing.B, players int) {
	e := newBenchEngine(b, players)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		e.DecayTick()
	}
}

// -----------------------------------------------------------------------------
// REPLICATION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkSnapshot_Cached(b *testing.B) {
	e := newBenchEngine(b, 100)
	e.Snapshot()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		e.Snapshot()
	}
}

func BenchmarkSnapshot_Rebuild(b *testing.B) {
	e := newBenchEngine(b, 100)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		e.UpdatePosition("p0001", float64(i%3000), 1500)
		e.Snapshot()
	}
}

func BenchmarkViewQuery(b *testing.B) {
	e := newBenchEngine(b, 100)
	index := NewViewIndex(e.Snapshot())
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		index.Query(float64(i%3000), 1500, 600)
	}
}
