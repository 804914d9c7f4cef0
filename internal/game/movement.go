package game

// UpdatePosition moves the caller's player to (x, y), clamped so the whole
// circle stays inside the world. Mass and radius are untouched. The target
// is trusted; only the bounds are enforced.
func (e *Engine) UpdatePosition(id Identity, x, y float64) bool {
	return e.transact(ReducerUpdatePosition, func(tx *Tx) bool {
		if !finite(x, y) {
			return false
		}
		cfg, ok := tx.Config()
		if !ok {
			return false
		}
		p, ok := tx.Player(id)
		if !ok {
			return false
		}

		p.X, p.Y = clampToWorld(cfg, x, y, p.Radius)
		tx.PutPlayer(p)
		e.eventLog.Record(EventTypeMove, id, tx.CommitVersion(), MovePayload{X: p.X, Y: p.Y})
		return true
	})
}

// UpdateCellPosition moves one of the caller's split cells. A cell owned by
// someone else is never moved.
func (e *Engine) UpdateCellPosition(id Identity, cellID uint64, x, y float64) bool {
	return e.transact(ReducerUpdateCellPosition, func(tx *Tx) bool {
		if !finite(x, y) {
			return false
		}
		cfg, ok := tx.Config()
		if !ok {
			return false
		}
		c, ok := tx.Cell(cellID)
		if !ok || c.Owner != id {
			return false
		}

		c.X, c.Y = clampToWorld(cfg, x, y, c.Radius)
		tx.PutCell(c)
		e.eventLog.Record(EventTypeMove, id, tx.CommitVersion(), MovePayload{CellID: c.CellID, X: c.X, Y: c.Y})
		return true
	})
}

// clampToWorld keeps a circle of the given radius inside the world.
func clampToWorld(cfg GameConfig, x, y, radius float64) (float64, float64) {
	return Clamp(x, radius, float64(cfg.WorldWidth)-radius),
		Clamp(y, radius, float64(cfg.WorldHeight)-radius)
}

// clampWithMargin keeps a point at least margin away from every edge.
func clampWithMargin(cfg GameConfig, x, y, margin float64) (float64, float64) {
	return Clamp(x, margin, float64(cfg.WorldWidth)-margin),
		Clamp(y, margin, float64(cfg.WorldHeight)-margin)
}
