package game

import (
	"math"

	"isles-of-conquest/pkg/ballistics"
	"isles-of-conquest/pkg/geom"
)

// BulletID identifies a cannonball in flight.
type BulletID uint64

// Bullet is a cannonball in flight.
type Bullet struct {
	ID         BulletID
	Player     PlayerID
	Trajectory ballistics.Trajectory
	Target     geom.V2D
	Elapsed    float64
}

// Position returns the bullet's current 3D position.
func (b *Bullet) Position() geom.V3D {
	return b.Trajectory.PositionAt(b.Elapsed)
}

// fire launches a ball from ship at target using the given cannon. It
// returns false when there is no ballistic solution.
func (s *State) fire(ship *Ship, cannon int, target geom.V2D, events []Event) ([]Event, bool) {
	tr, ok := ballistics.FromTarget(ship.Position, target, s.settings.Gun)
	if !ok {
		return events, false
	}

	s.nextBullet++
	b := &Bullet{
		ID:         s.nextBullet,
		Player:     ship.Key.Player,
		Trajectory: tr,
		Target:     target,
	}
	s.bullets[b.ID] = b
	ship.Cannons[cannon] = s.time
	ship.LastShotTime = s.time

	return append(events, Event{
		Kind:       EventBulletFired,
		Player:     b.Player,
		Ship:       ship.Key,
		Bullet:     b.ID,
		Position:   target,
		Trajectory: tr,
	}), true
}

// shootAt fires every ready selected ship at target with a small scatter.
func (s *State) shootAt(p *Player, target geom.V2D, events []Event) ([]Event, error) {
	ids := p.Selected()
	if len(ids) == 0 {
		return events, ErrNoSelection
	}

	fired := 0
	for _, id := range ids {
		ship := s.ships[ShipKey{ID: id, Player: p.ID}]
		if ship == nil {
			continue
		}
		cannon := ship.readyCannon(s.time, s.settings.ReloadTime)
		if cannon < 0 {
			continue
		}
		aim := target.Add(scatter(p, s.settings.ShotScatter))
		var ok bool
		if events, ok = s.fire(ship, cannon, aim, events); ok {
			fired++
		}
	}
	if fired == 0 {
		return events, ErrOutOfRange
	}
	return events, nil
}

func scatter(p *Player, radius float64) geom.V2D {
	if radius <= 0 {
		return geom.V2D{}
	}
	angle := p.rng.Float64() * 2 * math.Pi
	d := math.Sqrt(p.rng.Float64()) * radius
	return geom.V2D{X: math.Cos(angle) * d, Y: math.Sin(angle) * d}
}

// rebuildGrid reindexes ship positions for this tick's queries.
func (s *State) rebuildGrid() {
	s.grid.Clear()
	for k, ship := range s.ships {
		s.grid.Insert(ship.Position, k)
	}
}

// autoTarget lets selected ships with a loaded cannon engage the nearest
// enemy in range. Each ship shoots at most once per tick and a player never
// aims two ships at the same enemy in one tick.
func (s *State) autoTarget(events []Event) []Event {
	maxRange := s.settings.Gun.MaxRange()
	var found []ShipKey

	for _, pid := range s.playerIDs() {
		p := s.players[pid]
		targeted := make(map[ShipKey]bool)
		radius := math.Min(p.ShootRadius, maxRange)

		for _, id := range p.Selected() {
			ship := s.ships[ShipKey{ID: id, Player: pid}]
			if ship == nil {
				continue
			}
			cannon := ship.readyCannon(s.time, s.settings.ReloadTime)
			if cannon < 0 {
				continue
			}
			if p.rng.Float64() >= s.settings.FireProbability {
				continue
			}

			found = s.grid.Query(ship.Position, radius, found[:0])
			var best *Ship
			bestDist := math.Inf(1)
			for _, k := range found {
				if k.Player == pid || targeted[k] {
					continue
				}
				enemy := s.ships[k]
				d := enemy.Position.Dist(ship.Position)
				if d < bestDist || (d == bestDist && k.Compare(best.Key) < 0) {
					best, bestDist = enemy, d
				}
			}
			if best == nil {
				continue
			}

			var ok bool
			if events, ok = s.fire(ship, cannon, best.Position, events); ok {
				targeted[best.Key] = true
			}
		}
	}
	return events
}

// advanceBullets moves every ball forward and resolves the ones that landed.
func (s *State) advanceBullets(dt float64, events []Event) []Event {
	for _, id := range s.bulletIDs() {
		b := s.bullets[id]
		b.Elapsed += dt
		if !b.Trajectory.Landed(b.Elapsed) {
			continue
		}
		delete(s.bullets, id)

		impact := b.Trajectory.Impact()
		events = append(events, Event{Kind: EventBulletLanded, Player: b.Player, Bullet: id, Position: impact})
		events = s.resolveHit(b, impact, events)
	}
	return events
}

// resolveHit damages the enemy ship nearest the impact point.
func (s *State) resolveHit(b *Bullet, impact geom.V2D, events []Event) []Event {
	var victim *Ship
	var bestDist float64
	for _, k := range s.shipKeys() {
		if k.Player == b.Player {
			continue
		}
		ship := s.ships[k]
		d := ship.Position.Dist(impact)
		if d <= s.settings.HitRadius && (victim == nil || d < bestDist) {
			victim, bestDist = ship, d
		}
	}
	if victim == nil {
		return events
	}

	victim.HP -= s.settings.ShotDamage
	if victim.HP > 0 {
		return append(events, Event{
			Kind:     EventShipDamaged,
			Ship:     victim.Key,
			Attacker: b.Player,
			HP:       victim.HP,
			Position: victim.Position,
		})
	}

	delete(s.ships, victim.Key)
	s.forgetShip(victim.Key)

	kill := Kill{
		Tick:     s.tick,
		Killer:   b.Player,
		Victim:   victim.Key.Player,
		Ship:     victim.Key,
		Position: victim.Position,
	}
	if p := s.players[b.Player]; p != nil {
		p.Kills++
		kill.KillerName = p.Name
	}
	if p := s.players[victim.Key.Player]; p != nil {
		p.Deaths++
		kill.VictimName = p.Name
	}
	if s.OnKill != nil {
		s.OnKill(kill)
	}

	return append(events, Event{
		Kind:     EventShipDestroyed,
		Ship:     victim.Key,
		Attacker: b.Player,
		Position: victim.Position,
	})
}
