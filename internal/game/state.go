// Package game contains the authoritative naval simulation. The same State
// runs inside the server's instance loop and inside a local client.
package game

import (
	"slices"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/pkg/ballistics"
	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
	"isles-of-conquest/pkg/pathfind"
	"isles-of-conquest/pkg/spatial"
)

// Settings contains the tunable simulation parameters.
type Settings struct {
	BoatSpeed         float64 `json:"boatSpeed"`
	WaypointTolerance float64 `json:"waypointTolerance"`
	FinalTolerance    float64 `json:"finalTolerance"`
	VelocityEpsilon   float64 `json:"velocityEpsilon"`

	ShipHP          int               `json:"shipHp"`
	ReloadTime      float64           `json:"reloadTime"`
	ShotDamage      int               `json:"shotDamage"`
	HitRadius       float64           `json:"hitRadius"`
	FireProbability float64           `json:"fireProbability"`
	ShotScatter     float64           `json:"shotScatter"`
	Gun             ballistics.Params `json:"gun"`

	BaseShipCap      int     `json:"baseShipCap"`
	ShipsPerIsland   int     `json:"shipsPerIsland"`
	FormationSpacing float64 `json:"formationSpacing"`

	BotCount        int     `json:"botCount"`
	BotInterval     float64 `json:"botInterval"`
	BotActionChance float64 `json:"botActionChance"`

	BucketSize float64 `json:"bucketSize"`
	ChunkSize  int     `json:"chunkSize"`
}

// DefaultSettings returns the settings used by the server.
func DefaultSettings() Settings {
	return Settings{
		BoatSpeed:         10,
		WaypointTolerance: 2.0,
		FinalTolerance:    0.5,
		VelocityEpsilon:   0.01,

		ShipHP:          30,
		ReloadTime:      3,
		ShotDamage:      10,
		HitRadius:       3,
		FireProbability: 0.35,
		ShotScatter:     1.5,
		Gun:             ballistics.DefaultParams(),

		BaseShipCap:      5,
		ShipsPerIsland:   3,
		FormationSpacing: 6,

		BotCount:        2,
		BotInterval:     1,
		BotActionChance: 0.6,

		BucketSize: 64,
		ChunkSize:  pathfind.DefaultChunkSize,
	}
}

// KillFunc is notified of every ship destroyed by enemy fire.
type KillFunc func(Kill)

// Kill describes a destroyed ship.
type Kill struct {
	Tick       uint64
	Killer     PlayerID
	KillerName string
	Victim     PlayerID
	VictimName string
	Ship       ShipKey
	Position   geom.V2D
}

// State is the canonical simulation state. It is not safe for concurrent
// use; every mutation happens inside Step.
type State struct {
	settings Settings
	world    *maps.World
	planner  *pathfind.Planner
	ids      *IDAllocator

	tick uint64
	time float64

	players map[PlayerID]*Player
	ships   map[ShipKey]*Ship
	bullets map[BulletID]*Bullet
	owners  map[maps.IslandID]PlayerID
	bots    map[PlayerID]*Bot

	intents    []Intent
	grid       *spatial.Grid[ShipKey]
	nextBullet BulletID
	botTarget  int

	// OnKill is called from inside Step for every kill.
	OnKill KillFunc

	log *logrus.Entry
}

// Tick returns the number of completed steps.
func (s *State) Tick() uint64 { return s.tick }

// Time returns the simulated time in seconds.
func (s *State) Time() float64 { return s.time }

// World returns the immutable tile grid.
func (s *State) World() *maps.World { return s.world }

// Planner returns the path planner built over the world.
func (s *State) Planner() *pathfind.Planner { return s.planner }

// Settings returns the simulation settings.
func (s *State) Settings() Settings { return s.settings }

// IDs returns the player id allocator shared with the network layer.
func (s *State) IDs() *IDAllocator { return s.ids }

// SetLogger replaces the log entry used for stale intent reports.
func (s *State) SetLogger(e *logrus.Entry) { s.log = e }

// Enqueue queues an intent for the next step.
func (s *State) Enqueue(in Intent) {
	s.intents = append(s.intents, in)
}

// Player returns a player by id.
func (s *State) Player(id PlayerID) *Player { return s.players[id] }

// HasPlayer reports whether a player exists.
func (s *State) HasPlayer(id PlayerID) bool {
	_, ok := s.players[id]
	return ok
}

// PlayerCount returns the number of players, bots included.
func (s *State) PlayerCount() int { return len(s.players) }

// HumanCount returns the number of non-bot players.
func (s *State) HumanCount() int {
	n := 0
	for _, p := range s.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// Ship returns a ship by key.
func (s *State) Ship(key ShipKey) *Ship { return s.ships[key] }

// ShipCount returns the number of ships in the world.
func (s *State) ShipCount() int { return len(s.ships) }

// BulletCount returns the number of bullets in flight.
func (s *State) BulletCount() int { return len(s.bullets) }

// Owner returns the owner of an island, or 0.
func (s *State) Owner(id maps.IslandID) PlayerID { return s.owners[id] }

// Bot returns the bot controller for a player, if any.
func (s *State) Bot(id PlayerID) *Bot { return s.bots[id] }

// BotCount returns the number of live bot controllers.
func (s *State) BotCount() int { return len(s.bots) }

// ShipsOf returns a player's ships ordered by id.
func (s *State) ShipsOf(id PlayerID) []*Ship {
	var out []*Ship
	for _, k := range s.shipKeys() {
		if k.Player == id {
			out = append(out, s.ships[k])
		}
	}
	return out
}

// IslandsOwnedBy counts the islands a player owns.
func (s *State) IslandsOwnedBy(id PlayerID) int {
	n := 0
	for _, owner := range s.owners {
		if owner == id {
			n++
		}
	}
	return n
}

// ShipCap returns how many ships a player may have.
func (s *State) ShipCap(id PlayerID) int {
	return s.settings.BaseShipCap + s.settings.ShipsPerIsland*s.IslandsOwnedBy(id)
}

func (s *State) playerIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *State) shipKeys() []ShipKey {
	keys := make([]ShipKey, 0, len(s.ships))
	for k := range s.ships {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, ShipKey.Compare)
	return keys
}

func (s *State) bulletIDs() []BulletID {
	ids := make([]BulletID, 0, len(s.bullets))
	for id := range s.bullets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *State) logger() *logrus.Entry {
	if s.log == nil {
		s.log = logrus.NewEntry(logger.Log)
	}
	return s.log
}
