package game

import (
	"fmt"
	"math"
	"math/rand"

	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/maps"
	"isles-of-conquest/pkg/pathfind"
	"isles-of-conquest/pkg/spatial"
)

// NewState creates a simulation over a generated world. Initial bots are
// spawned immediately.
func NewState(world *maps.World, settings Settings) *State {
	s := &State{
		settings:  settings,
		world:     world,
		planner:   pathfind.NewPlanner(world, settings.ChunkSize),
		ids:       NewIDAllocator(),
		players:   make(map[PlayerID]*Player),
		ships:     make(map[ShipKey]*Ship),
		bullets:   make(map[BulletID]*Bullet),
		owners:    make(map[maps.IslandID]PlayerID),
		bots:      make(map[PlayerID]*Bot),
		grid:      spatial.NewGrid[ShipKey](world.Size(), settings.BucketSize),
		botTarget: settings.BotCount,
	}
	s.fillBots(nil)
	return s
}

func (s *State) addPlayer(id PlayerID, name string, events []Event) ([]Event, error) {
	if id == 0 {
		return events, ErrUnknownPlayer
	}
	if _, ok := s.players[id]; ok {
		return events, fmt.Errorf("%w: %d", ErrPlayerExists, id)
	}
	p := NewPlayer(id, name, s.world.Config.Seed)
	s.place(p)
	return append(events, joinedEvent(p)), nil
}

func (s *State) place(p *Player) {
	p.ShootRadius = s.settings.Gun.MaxRange()
	p.Home = s.spawnPoint(p.rng)
	s.players[p.ID] = p
}

func joinedEvent(p *Player) Event {
	return Event{
		Kind:     EventPlayerJoined,
		Player:   p.ID,
		Name:     p.Name,
		Flag:     p.Flag,
		IsBot:    p.IsBot,
		Position: p.Home,
	}
}

// removePlayer deletes a player together with its fleet.
func (s *State) removePlayer(id PlayerID, events []Event) ([]Event, error) {
	if _, ok := s.players[id]; !ok {
		return events, ErrUnknownPlayer
	}
	for _, k := range s.shipKeys() {
		if k.Player != id {
			continue
		}
		ship := s.ships[k]
		delete(s.ships, k)
		events = append(events, Event{Kind: EventShipDestroyed, Ship: k, Position: ship.Position})
	}
	delete(s.players, id)
	delete(s.bots, id)
	return append(events, Event{Kind: EventPlayerLeft, Player: id}), nil
}

func (s *State) setName(p *Player, name string, events []Event) ([]Event, error) {
	n, err := cleanName(name)
	if err != nil {
		return events, err
	}
	p.Name = n
	return append(events, Event{Kind: EventPlayerRenamed, Player: p.ID, Name: n}), nil
}

func (s *State) setShootRadius(p *Player, r float64, events []Event) []Event {
	p.ShootRadius = math.Max(0, math.Min(r, s.settings.Gun.MaxRange()))
	return append(events, Event{Kind: EventShootRadius, To: p.ID, Player: p.ID, Radius: p.ShootRadius})
}

// spawnPoint picks an open-water tile centre.
func (s *State) spawnPoint(rng *rand.Rand) geom.V2D {
	w := s.world
	side := w.Side
	margin := side / 8

	for i := 0; i < 64; i++ {
		x := margin + rng.Intn(max(1, side-2*margin))
		y := margin + rng.Intn(max(1, side-2*margin))
		if t := w.TileAt(x, y); t != nil && t.Kind == maps.Water {
			return w.TileCenter(x, y)
		}
	}

	var sp geom.Spiral
	center := geom.Point{X: side / 2, Y: side / 2}
	for i := 0; i < geom.SquareCount(side); i++ {
		p := center.Add(sp.Next())
		if t := w.TileAt(p.X, p.Y); t != nil && t.Kind.IsWater() {
			return w.TileCenter(p.X, p.Y)
		}
	}
	return geom.V2D{}
}
