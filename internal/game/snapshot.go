package game

import (
	"cmp"
	"slices"

	"isles-of-conquest/pkg/ballistics"
	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/maps"
)

// WorldMeta lets a client regenerate and verify the world.
type WorldMeta struct {
	Preset   string  `msgpack:"preset" json:"preset"`
	Seed     int64   `msgpack:"seed" json:"seed"`
	Size     float64 `msgpack:"size" json:"size"`
	TileSize float64 `msgpack:"tile" json:"tileSize"`
	Islands  int     `msgpack:"islands" json:"islands"`
	Checksum string  `msgpack:"sum" json:"checksum"`
}

// PlayerInfo is the public view of a player.
type PlayerInfo struct {
	ID          PlayerID `msgpack:"id"`
	Name        string   `msgpack:"n"`
	Flag        string   `msgpack:"f"`
	IsBot       bool     `msgpack:"b"`
	Kills       int      `msgpack:"k"`
	Deaths      int      `msgpack:"d"`
	ShootRadius float64  `msgpack:"r"`
	Home        geom.V2D `msgpack:"h"`
}

// ShipInfo is the public view of a ship.
type ShipInfo struct {
	Key         ShipKey    `msgpack:"key"`
	Position    geom.V2D   `msgpack:"pos"`
	Velocity    geom.V2D   `msgpack:"vel"`
	Orientation geom.V2D   `msgpack:"ori"`
	HP          int        `msgpack:"hp"`
	Path        []geom.V2D `msgpack:"path,omitempty"`
}

// BulletInfo is the public view of a bullet.
type BulletInfo struct {
	ID         BulletID              `msgpack:"id"`
	Player     PlayerID              `msgpack:"p"`
	Trajectory ballistics.Trajectory `msgpack:"tr"`
	Target     geom.V2D              `msgpack:"t"`
	Elapsed    float64               `msgpack:"e"`
}

// IslandOwner pairs an island with its current owner.
type IslandOwner struct {
	Island maps.IslandID `msgpack:"i"`
	Owner  PlayerID      `msgpack:"o"`
}

// Snapshot is a complete copy of the dynamic state.
type Snapshot struct {
	Tick    uint64        `msgpack:"tick"`
	Time    float64       `msgpack:"time"`
	World   WorldMeta     `msgpack:"world"`
	Players []PlayerInfo  `msgpack:"players"`
	Ships   []ShipInfo    `msgpack:"ships"`
	Bullets []BulletInfo  `msgpack:"bullets"`
	Islands []IslandOwner `msgpack:"islands"`
}

// Meta describes the world of this state.
func (s *State) Meta() WorldMeta {
	return WorldMeta{
		Preset:   s.world.Config.ID,
		Seed:     s.world.Config.Seed,
		Size:     s.world.Size(),
		TileSize: s.world.TileSize(),
		Islands:  s.world.IslandCount(),
		Checksum: s.world.Checksum(),
	}
}

// Snapshot copies the dynamic state in a deterministic order.
func (s *State) Snapshot(meta WorldMeta) *Snapshot {
	snap := &Snapshot{Tick: s.tick, Time: s.time, World: meta}

	for _, id := range s.playerIDs() {
		p := s.players[id]
		snap.Players = append(snap.Players, PlayerInfo{
			ID:          p.ID,
			Name:        p.Name,
			Flag:        p.Flag,
			IsBot:       p.IsBot,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
			ShootRadius: p.ShootRadius,
			Home:        p.Home,
		})
	}
	for _, k := range s.shipKeys() {
		sh := s.ships[k]
		snap.Ships = append(snap.Ships, ShipInfo{
			Key:         k,
			Position:    sh.Position,
			Velocity:    sh.Velocity,
			Orientation: sh.Orientation,
			HP:          sh.HP,
			Path:        slices.Clone(sh.Path),
		})
	}
	for _, id := range s.bulletIDs() {
		b := s.bullets[id]
		snap.Bullets = append(snap.Bullets, BulletInfo{
			ID:         b.ID,
			Player:     b.Player,
			Trajectory: b.Trajectory,
			Target:     b.Target,
			Elapsed:    b.Elapsed,
		})
	}
	for i := range s.world.Islands {
		id := s.world.Islands[i].ID
		if owner := s.owners[id]; owner != 0 {
			snap.Islands = append(snap.Islands, IslandOwner{Island: id, Owner: owner})
		}
	}
	return snap
}

// Player returns a player from the snapshot.
func (snap *Snapshot) Player(id PlayerID) *PlayerInfo {
	for i := range snap.Players {
		if snap.Players[i].ID == id {
			return &snap.Players[i]
		}
	}
	return nil
}

// Ship returns a ship from the snapshot.
func (snap *Snapshot) Ship(k ShipKey) *ShipInfo {
	for i := range snap.Ships {
		if snap.Ships[i].Key == k {
			return &snap.Ships[i]
		}
	}
	return nil
}

// Owner returns the owner of an island in the snapshot.
func (snap *Snapshot) Owner(id maps.IslandID) PlayerID {
	for _, io := range snap.Islands {
		if io.Island == id {
			return io.Owner
		}
	}
	return 0
}

// Apply folds an event into the snapshot so a client can mirror the server
// between full snapshots.
func (snap *Snapshot) Apply(ev Event) {
	switch ev.Kind {
	case EventPlayerJoined:
		if snap.Player(ev.Player) == nil {
			snap.Players = append(snap.Players, PlayerInfo{
				ID: ev.Player, Name: ev.Name, Flag: ev.Flag, IsBot: ev.IsBot, Home: ev.Position,
			})
		}
	case EventPlayerLeft:
		snap.Players = slices.DeleteFunc(snap.Players, func(p PlayerInfo) bool { return p.ID == ev.Player })
		snap.Ships = slices.DeleteFunc(snap.Ships, func(s ShipInfo) bool { return s.Key.Player == ev.Player })
	case EventPlayerRenamed:
		if p := snap.Player(ev.Player); p != nil {
			p.Name = ev.Name
		}
	case EventShootRadius:
		if p := snap.Player(ev.Player); p != nil {
			p.ShootRadius = ev.Radius
		}
	case EventShipCreated:
		if snap.Ship(ev.Ship) == nil {
			snap.Ships = append(snap.Ships, ShipInfo{Key: ev.Ship, Position: ev.Position, HP: ev.HP, Orientation: geom.V2D{X: 1}})
		}
	case EventShipMoved:
		if sh := snap.Ship(ev.Ship); sh != nil {
			sh.Position = ev.Position
			sh.Velocity = ev.Velocity
			sh.Orientation = ev.Velocity.Normalize()
		}
	case EventShipStopped:
		if sh := snap.Ship(ev.Ship); sh != nil {
			sh.Position = ev.Position
			sh.Velocity = geom.V2D{}
		}
	case EventShipDamaged:
		if sh := snap.Ship(ev.Ship); sh != nil {
			sh.HP = ev.HP
		}
	case EventShipDestroyed:
		snap.Ships = slices.DeleteFunc(snap.Ships, func(s ShipInfo) bool { return s.Key == ev.Ship })
		if ev.Attacker != 0 {
			if p := snap.Player(ev.Attacker); p != nil {
				p.Kills++
			}
			if p := snap.Player(ev.Ship.Player); p != nil {
				p.Deaths++
			}
		}
	case EventBulletFired:
		snap.Bullets = append(snap.Bullets, BulletInfo{ID: ev.Bullet, Player: ev.Player, Trajectory: ev.Trajectory, Target: ev.Position})
	case EventBulletLanded:
		snap.Bullets = slices.DeleteFunc(snap.Bullets, func(b BulletInfo) bool { return b.ID == ev.Bullet })
	case EventIslandOwner:
		snap.Islands = slices.DeleteFunc(snap.Islands, func(io IslandOwner) bool { return io.Island == ev.Island })
		if ev.Player != 0 {
			snap.Islands = append(snap.Islands, IslandOwner{Island: ev.Island, Owner: ev.Player})
			slices.SortFunc(snap.Islands, func(a, b IslandOwner) int { return cmp.Compare(a.Island, b.Island) })
		}
	}
}

// Advance moves ships and bullets forward by dt using their last known
// velocities. Clients call it between server frames.
func (snap *Snapshot) Advance(dt float64) {
	snap.Time += dt
	for i := range snap.Ships {
		sh := &snap.Ships[i]
		sh.Position = sh.Position.Add(sh.Velocity.Scale(dt))
	}
	for i := range snap.Bullets {
		snap.Bullets[i].Elapsed += dt
	}
}
