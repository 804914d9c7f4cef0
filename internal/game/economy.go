package game

// EjectMass fires a fixed-mass pellet EjectDistance away in (dirX, dirY).
// The player must keep at least BaseMass afterwards.
func (e *Engine) EjectMass(id Identity, dirX, dirY float64) bool {
	return e.transact(ReducerEjectMass, func(tx *Tx) bool {
		cfg, ok := tx.Config()
		if !ok {
			return false
		}
		p, ok := tx.Player(id)
		if !ok {
			return false
		}
		if p.Mass <= BaseMass+EjectMassAmount {
			return false
		}
		nx, ny, ok := Normalize(dirX, dirY)
		if !ok {
			return false
		}

		x, y := clampWithMargin(cfg, p.X+nx*EjectDistance, p.Y+ny*EjectDistance, FoodMargin)
		p = p.withMass(p.Mass - EjectMassAmount)
		tx.PutPlayer(p)

		pellet := tx.PutEjected(EjectedMass{
			X:      x,
			Y:      y,
			Radius: MassToRadius(EjectMassAmount),
			Mass:   EjectMassAmount,
		})

		e.eventLog.Record(EventTypeEject, id, tx.CommitVersion(), EjectPayload{
			MassID:    pellet.ID,
			X:         pellet.X,
			Y:         pellet.Y,
			MassAfter: p.Mass,
		})
		return true
	})
}

// SplitCell halves the caller's mass into a new PlayerCell thrown along
// (dirX, dirY) and schedules the merge. Only one split cell may exist per
// player at a time.
func (e *Engine) SplitCell(id Identity, dirX, dirY float64) bool {
	return e.transact(ReducerSplitCell, func(tx *Tx) bool {
		cfg, ok := tx.Config()
		if !ok {
			return false
		}
		p, ok := tx.Player(id)
		if !ok {
			return false
		}
		if p.Mass < MinSplitMass {
			return false
		}
		if len(tx.CellsOf(id)) > 0 {
			return false
		}
		nx, ny, ok := Normalize(dirX, dirY)
		if !ok {
			return false
		}

		half := p.Mass / 2
		offset := SplitOffset(half)
		x, y := clampWithMargin(cfg, p.X+nx*offset, p.Y+ny*offset, SplitMargin)

		p = p.withMass(half)
		tx.PutPlayer(p)
		cell := tx.PutCell(PlayerCell{Owner: id, X: x, Y: y}.withMass(half))

		merge := tx.PutMergeSchedule(MergeSchedule{
			At:    e.scheduler.Now().Add(e.cfg.MergeDelay),
			Owner: id,
		})
		tx.AfterCommit(func() {
			e.scheduler.At(merge.At, func() { e.fireMerge(merge.ScheduleID) })
		})

		e.eventLog.Record(EventTypeSplit, id, tx.CommitVersion(), SplitPayload{
			CellID:     cell.CellID,
			HalfMass:   half,
			MergeAt:    merge.At,
			ScheduleID: merge.ScheduleID,
		})
		return true
	})
}

// DecayTick shrinks every player above BaseMass and every split cell above
// MinCellMass by one decay step. Rows deleted since the last tick are simply
// not visited.
func (e *Engine) DecayTick() bool {
	applied := e.transact(ReducerDecayTick, func(tx *Tx) bool {
		var players, cells int
		for _, p := range tx.Players() {
			if p.Mass > BaseMass {
				tx.PutPlayer(p.withMass(Decay(p.Mass, MassDecayRate, BaseMass)))
				players++
			}
		}
		for _, c := range tx.Cells() {
			if c.Mass > MinCellMass {
				tx.PutCell(c.withMass(Decay(c.Mass, MassDecayRate, MinCellMass)))
				cells++
			}
		}
		if players == 0 && cells == 0 {
			return false
		}
		e.eventLog.Record(EventTypeDecay, "", tx.CommitVersion(), DecayPayload{Players: players, Cells: cells})
		return true
	})
	e.publishGauges()
	return applied
}

// MergeTick folds every split cell of owner back into its player. With no
// cells it does nothing; with cells but no player the cells are still
// removed.
func (e *Engine) MergeTick(owner Identity) bool {
	return e.transact(ReducerMergeTick, func(tx *Tx) bool {
		return e.merge(tx, owner, 0)
	})
}

// fireMerge is the scheduled entry point: it consumes the schedule row and
// merges its owner. A row already gone means there is nothing to do.
func (e *Engine) fireMerge(scheduleID uint64) {
	e.transact(ReducerMergeTick, func(tx *Tx) bool {
		schedule, ok := tx.MergeSchedule(scheduleID)
		if !ok {
			return false
		}
		tx.DeleteMergeSchedule(scheduleID)
		return e.merge(tx, schedule.Owner, scheduleID)
	})
}

func (e *Engine) merge(tx *Tx, owner Identity, scheduleID uint64) bool {
	cells := tx.CellsOf(owner)
	if len(cells) == 0 {
		return false
	}

	merged := tx.DeleteCellsOf(owner)
	p, alive := tx.Player(owner)
	if alive {
		tx.PutPlayer(p.withMass(p.Mass + merged))
	}

	e.eventLog.Record(EventTypeMerge, owner, tx.CommitVersion(), MergePayload{
		ScheduleID: scheduleID,
		Cells:      len(cells),
		Merged:     merged,
		OwnerAlive: alive,
	})
	return true
}
