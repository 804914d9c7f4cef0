package game

import "cell-arena/internal/game/spatial"

// ViewCellSize is the grid cell size used for viewport queries.
const ViewCellSize = 250.0

// View is the subset of a snapshot visible around a point. Players and
// split cells are always included in full; pellets are filtered.
type View struct {
	Version uint64        `json:"version" msgpack:"version"`
	Config  GameConfig    `json:"config" msgpack:"config"`
	Players []Player      `json:"players" msgpack:"players"`
	Cells   []PlayerCell  `json:"cells" msgpack:"cells"`
	Food    []FoodPellet  `json:"food" msgpack:"food"`
	Ejected []EjectedMass `json:"ejected" msgpack:"ejected"`
}

// ViewIndex answers viewport queries over one snapshot. Build it once per
// snapshot and share it; Query is safe for concurrent use.
type ViewIndex struct {
	snap    *WorldSnapshot
	food    *spatial.Grid
	ejected *spatial.Grid
}

// NewViewIndex buckets the snapshot's pellets into grids.
func NewViewIndex(snap *WorldSnapshot) *ViewIndex {
	w, h := float64(snap.Config.WorldWidth), float64(snap.Config.WorldHeight)

	food := spatial.NewGrid(w, h, ViewCellSize)
	for i, f := range snap.Food {
		food.Insert(uint32(i), f.X, f.Y)
	}
	ejected := spatial.NewGrid(w, h, ViewCellSize)
	for i, m := range snap.Ejected {
		ejected.Insert(uint32(i), m.X, m.Y)
	}

	return &ViewIndex{snap: snap, food: food, ejected: ejected}
}

// Query returns the pellets whose circles touch the disc of the given
// radius around (x, y).
func (v *ViewIndex) Query(x, y, radius float64) View {
	view := View{
		Version: v.snap.Version,
		Config:  v.snap.Config,
		Players: v.snap.Players,
		Cells:   v.snap.Cells,
		Food:    []FoodPellet{},
		Ejected: []EjectedMass{},
	}

	var buf []uint32
	buf = v.food.Query(x, y, radius+FoodRadius, buf)
	for _, i := range buf {
		f := v.snap.Food[i]
		if Overlaps(x, y, radius, f.X, f.Y, f.Radius, 1) {
			view.Food = append(view.Food, f)
		}
	}

	buf = v.ejected.Query(x, y, radius+MassToRadius(EjectMassAmount), buf[:0])
	for _, i := range buf {
		m := v.snap.Ejected[i]
		if Overlaps(x, y, radius, m.X, m.Y, m.Radius, 1) {
			view.Ejected = append(view.Ejected, m)
		}
	}
	return view
}

// QueryFor centres a viewport on a player. ok is false when the player is
// not in the snapshot.
func (v *ViewIndex) QueryFor(id Identity, radius float64) (View, bool) {
	p, ok := v.snap.Player(id)
	if !ok {
		return View{}, false
	}
	return v.Query(p.X, p.Y, radius+p.Radius), true
}

// View returns the whole snapshot as a View, for clients without a player
// to centre on.
func (s *WorldSnapshot) View() View {
	return View{
		Version: s.Version,
		Config:  s.Config,
		Players: s.Players,
		Cells:   s.Cells,
		Food:    s.Food,
		Ejected: s.Ejected,
	}
}
