package game

import (
	"cmp"
	"fmt"

	"isles-of-conquest/pkg/geom"
)

// ShipID identifies a ship within its player's fleet.
type ShipID uint32

// ShipKey identifies a ship across all fleets.
type ShipKey struct {
	ID     ShipID   `msgpack:"i"`
	Player PlayerID `msgpack:"p"`
}

// Compare orders keys by player, then by ship id.
func (k ShipKey) Compare(o ShipKey) int {
	if c := cmp.Compare(k.Player, o.Player); c != 0 {
		return c
	}
	return cmp.Compare(k.ID, o.ID)
}

// String formats the key as player/ship.
func (k ShipKey) String() string {
	return fmt.Sprintf("%d/%d", k.Player, k.ID)
}

// Ship is a unit on the water.
type Ship struct {
	Key          ShipKey
	Position     geom.V2D
	Velocity     geom.V2D
	Orientation  geom.V2D
	Cannons      [3]float64 // last fire time per cannon
	LastShotTime float64
	HP           int
	Path         []geom.V2D

	sentVelocity geom.V2D
}

// Idle reports whether the ship has no route.
func (sh *Ship) Idle() bool { return len(sh.Path) == 0 }

// readyCannon returns the index of a cannon that has reloaded, or -1.
func (sh *Ship) readyCannon(now, reload float64) int {
	for i, last := range sh.Cannons {
		if now-last >= reload {
			return i
		}
	}
	return -1
}

func (s *State) createShip(p *Player, at geom.V2D, events []Event) ([]Event, error) {
	if !s.world.IsWaterAt(at) {
		return events, ErrNotWater
	}
	if len(s.ShipsOf(p.ID)) >= s.ShipCap(p.ID) {
		return events, ErrShipLimit
	}

	p.nextShip++
	ship := &Ship{
		Key:          ShipKey{ID: p.nextShip, Player: p.ID},
		Position:     at,
		Orientation:  geom.V2D{X: 1},
		HP:           s.settings.ShipHP,
		LastShotTime: -s.settings.ReloadTime,
	}
	for i := range ship.Cannons {
		ship.Cannons[i] = -s.settings.ReloadTime
	}
	s.ships[ship.Key] = ship

	return append(events, Event{
		Kind:     EventShipCreated,
		Ship:     ship.Key,
		HP:       ship.HP,
		Position: ship.Position,
	}), nil
}

// moveSelected routes every selected ship to a slot of a spiral formation
// around target.
func (s *State) moveSelected(p *Player, target geom.V2D, events []Event) ([]Event, error) {
	ids := p.Selected()
	if len(ids) == 0 {
		return events, ErrNoSelection
	}
	if !s.world.IsWaterAt(target) {
		return events, ErrNotWater
	}

	offsets := geom.SpiralOffsets(len(ids))
	failed := 0
	for i, id := range ids {
		ship := s.ships[ShipKey{ID: id, Player: p.ID}]
		if ship == nil {
			continue
		}
		slot := target.Add(geom.V2D{X: float64(offsets[i].X), Y: float64(offsets[i].Y)}.Scale(s.settings.FormationSpacing))
		if !s.world.IsWaterAt(slot) {
			slot = target
		}

		path, ok := s.planner.FindPath(ship.Position, slot)
		if !ok {
			failed++
			events = s.halt(ship, events)
			continue
		}
		ship.Path = path
	}
	if failed == len(ids) {
		return events, ErrNoPath
	}
	return events, nil
}

// halt clears a ship's route and reports the stop if clients saw it moving.
func (s *State) halt(ship *Ship, events []Event) []Event {
	ship.Path = nil
	ship.Velocity = geom.V2D{}
	if ship.sentVelocity == (geom.V2D{}) {
		return events
	}
	ship.sentVelocity = geom.V2D{}
	return append(events, Event{Kind: EventShipStopped, Ship: ship.Key, Position: ship.Position})
}

// advanceShips moves every routed ship toward its next waypoint.
func (s *State) advanceShips(dt float64, events []Event) []Event {
	speed := s.settings.BoatSpeed
	for _, k := range s.shipKeys() {
		ship := s.ships[k]
		if ship.Idle() {
			continue
		}

		for len(ship.Path) > 0 {
			tol := s.settings.WaypointTolerance
			if len(ship.Path) == 1 {
				tol = s.settings.FinalTolerance
			}
			if ship.Position.Dist(ship.Path[0]) >= tol {
				break
			}
			ship.Path = ship.Path[1:]
		}
		if len(ship.Path) == 0 {
			events = s.halt(ship, events)
			continue
		}

		next := ship.Path[0]
		dir := next.Sub(ship.Position).Normalize()
		ship.Velocity = dir.Scale(speed)
		ship.Orientation = dir

		if remaining := ship.Position.Dist(next); speed*dt >= remaining {
			ship.Position = next
		} else {
			ship.Position = ship.Position.Add(ship.Velocity.Scale(dt))
		}

		if ship.Velocity.Dist(ship.sentVelocity) > s.settings.VelocityEpsilon {
			ship.sentVelocity = ship.Velocity
			events = append(events, Event{
				Kind:     EventShipMoved,
				Ship:     ship.Key,
				Position: ship.Position,
				Velocity: ship.Velocity,
			})
		}
	}
	return events
}
