package game

import "log"

// EatFood consumes a food pellet the caller is touching. The pellet is
// replaced at a random position so the world food count is unchanged.
func (e *Engine) EatFood(id Identity, foodID uint64) bool {
	return e.transact(ReducerEatFood, func(tx *Tx) bool {
		cfg, ok := tx.Config()
		if !ok {
			return false
		}
		p, ok := tx.Player(id)
		if !ok {
			return false
		}
		food, ok := tx.Food(foodID)
		if !ok {
			return false
		}
		if !Overlaps(p.X, p.Y, p.Radius, food.X, food.Y, food.Radius, EatTolerance) {
			return false
		}

		tx.DeleteFood(foodID)
		p = p.withMass(p.Mass + FoodMassGain)
		tx.PutPlayer(p)
		replacement := e.spawnFood(tx, cfg)

		e.eventLog.Record(EventTypeEatFood, id, tx.CommitVersion(), EatFoodPayload{
			FoodID:     foodID,
			ReplacedBy: replacement.ID,
			MassAfter:  p.Mass,
		})
		return true
	})
}

// EatPlayer lets the caller absorb a target that is at least SizeAdvantage
// times lighter and within reach of the eater's radius. The target's player
// row and every split cell go in the same transaction as the mass transfer,
// so a racing merge or decay can neither resurrect nor duplicate its mass.
func (e *Engine) EatPlayer(id, target Identity) bool {
	return e.transact(ReducerEatPlayer, func(tx *Tx) bool {
		if id == target {
			return false
		}
		eater, ok := tx.Player(id)
		if !ok {
			return false
		}
		victim, ok := tx.Player(target)
		if !ok {
			return false
		}
		if eater.Mass < victim.Mass*SizeAdvantage {
			return false
		}
		if !Overlaps(eater.X, eater.Y, eater.Radius, victim.X, victim.Y, 0, EatTolerance) {
			return false
		}

		cells := len(tx.CellsOf(target))
		absorbed := victim.Mass + tx.DeleteCellsOf(target)
		tx.DeletePlayer(target)

		eater = eater.withMass(eater.Mass + absorbed)
		tx.PutPlayer(eater)

		version := tx.CommitVersion()
		e.eventLog.Record(EventTypeEatPlayer, id, version, EatPlayerPayload{
			Target:     target,
			Absorbed:   absorbed,
			CellsFreed: cells,
			MassAfter:  eater.Mass,
		})
		e.eventLog.Record(EventTypeDespawn, target, version, DespawnPayload{Reason: "eaten"})
		log.Printf("🍽️ %s ate %s (+%.1f mass)", eater.Name, victim.Name, absorbed)
		return true
	})
}

// EatEjectedMass consumes an ejected pellet and gains its exact mass.
// Ejected mass is finite, so nothing respawns.
func (e *Engine) EatEjectedMass(id Identity, massID uint64) bool {
	return e.transact(ReducerEatEjectedMass, func(tx *Tx) bool {
		p, ok := tx.Player(id)
		if !ok {
			return false
		}
		pellet, ok := tx.Ejected(massID)
		if !ok {
			return false
		}
		if !Overlaps(p.X, p.Y, p.Radius, pellet.X, pellet.Y, pellet.Radius, EatTolerance) {
			return false
		}

		tx.DeleteEjected(massID)
		p = p.withMass(p.Mass + pellet.Mass)
		tx.PutPlayer(p)

		e.eventLog.Record(EventTypeEatEjected, id, tx.CommitVersion(), EatEjectedPayload{
			MassID:    massID,
			Gained:    pellet.Mass,
			MassAfter: p.Mass,
		})
		return true
	})
}
