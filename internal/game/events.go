package game

import (
	"isles-of-conquest/pkg/ballistics"
	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/maps"
)

// EventKind is the type of a state change.
type EventKind uint8

const (
	EventPlayerJoined EventKind = iota + 1
	EventPlayerLeft
	EventPlayerRenamed
	EventShipCreated
	EventShipMoved
	EventShipStopped
	EventShipDamaged
	EventShipDestroyed
	EventBulletFired
	EventBulletLanded
	EventIslandOwner
	EventSelection
	EventShootRadius
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventPlayerJoined:
		return "player_joined"
	case EventPlayerLeft:
		return "player_left"
	case EventPlayerRenamed:
		return "player_renamed"
	case EventShipCreated:
		return "ship_created"
	case EventShipMoved:
		return "ship_moved"
	case EventShipStopped:
		return "ship_stopped"
	case EventShipDamaged:
		return "ship_damaged"
	case EventShipDestroyed:
		return "ship_destroyed"
	case EventBulletFired:
		return "bullet_fired"
	case EventBulletLanded:
		return "bullet_landed"
	case EventIslandOwner:
		return "island_owner"
	case EventSelection:
		return "selection"
	case EventShootRadius:
		return "shoot_radius"
	default:
		return "unknown"
	}
}

// Event is one change produced by a step. To is zero for broadcasts and
// names the recipient for targeted events.
type Event struct {
	Kind EventKind `msgpack:"k"`
	To   PlayerID  `msgpack:"to,omitempty"`

	Player   PlayerID `msgpack:"p,omitempty"`
	Name     string   `msgpack:"n,omitempty"`
	Flag     string   `msgpack:"f,omitempty"`
	IsBot    bool     `msgpack:"b,omitempty"`
	Ship     ShipKey  `msgpack:"s"`
	Attacker PlayerID `msgpack:"a,omitempty"`
	HP       int      `msgpack:"hp,omitempty"`
	Position geom.V2D `msgpack:"pos"`
	Velocity geom.V2D `msgpack:"vel"`

	Bullet     BulletID              `msgpack:"bl,omitempty"`
	Trajectory ballistics.Trajectory `msgpack:"tr"`

	Island maps.IslandID `msgpack:"i,omitempty"`
	Ships  []ShipID      `msgpack:"ss,omitempty"`
	Radius float64       `msgpack:"r,omitempty"`
}

// Broadcast reports whether every player receives the event.
func (e Event) Broadcast() bool { return e.To == 0 }
