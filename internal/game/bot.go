package game

import (
	"math"
	"math/rand"

	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/maps"
)

// BotState is the conquest phase of a bot.
type BotState uint8

const (
	BotWaitingForShips BotState = iota
	BotConquering
	BotReinforcing
	BotDead
)

// String returns the state name.
func (b BotState) String() string {
	switch b {
	case BotWaitingForShips:
		return "waiting_for_ships"
	case BotConquering:
		return "conquering"
	case BotReinforcing:
		return "reinforcing"
	case BotDead:
		return "dead"
	default:
		return "unknown"
	}
}

// View is the read-only slice of the state a bot decides on.
type View interface {
	Time() float64
	World() *maps.World
	Player(id PlayerID) *Player
	ShipsOf(id PlayerID) []*Ship
	Owner(id maps.IslandID) PlayerID
	IslandsOwnedBy(id PlayerID) int
	ShipCap(id PlayerID) int
}

// Bot drives one computer player.
type Bot struct {
	Player     PlayerID
	State      BotState
	Island     maps.IslandID
	Interval   float64
	Chance     float64
	nextAction float64
}

// NewBot creates a bot waiting for its first ships.
func NewBot(id PlayerID, interval, chance float64) *Bot {
	return &Bot{Player: id, Interval: interval, Chance: chance}
}

// Decide advances the state machine and returns the intents to queue.
func (b *Bot) Decide(v View, rng *rand.Rand) []Intent {
	if b.State == BotDead {
		return nil
	}
	ships := v.ShipsOf(b.Player)
	if len(ships) == 0 && (b.State == BotConquering || b.State == BotReinforcing) {
		b.State = BotDead
		return nil
	}

	if v.Time() < b.nextAction {
		return nil
	}
	b.nextAction = v.Time() + b.Interval
	if rng.Float64() >= b.Chance {
		return nil
	}

	var out []Intent
	if len(ships) < v.ShipCap(b.Player) {
		out = append(out, Intent{Kind: IntentCreateShip, Player: b.Player, Target: b.spawnAt(v, rng)})
	}

	owned := v.IslandsOwnedBy(b.Player)
	idle := idleShips(ships)

	switch b.State {
	case BotWaitingForShips:
		if len(ships) == 0 {
			break
		}
		if target := b.nearestTarget(v, ships); target != nil {
			b.State = BotConquering
			b.Island = target.ID
			out = append(out, b.attack(target, idle)...)
		}

	case BotConquering:
		if v.Owner(b.Island) == b.Player {
			b.State = BotReinforcing
			break
		}
		if len(idle) >= 3+owned {
			if target := b.nearestTarget(v, ships); target != nil {
				b.Island = target.ID
				out = append(out, b.attack(target, idle)...)
			}
		}

	case BotReinforcing:
		if len(idle) > 5+2*owned {
			if target := b.nearestTarget(v, ships); target != nil {
				b.State = BotConquering
				b.Island = target.ID
				out = append(out, b.attack(target, idle)...)
			}
		}
	}
	return out
}

func idleShips(ships []*Ship) []ShipID {
	var ids []ShipID
	for _, sh := range ships {
		if sh.Idle() {
			ids = append(ids, sh.Key.ID)
		}
	}
	return ids
}

func (b *Bot) attack(target *maps.Island, idle []ShipID) []Intent {
	if len(idle) == 0 {
		return nil
	}
	return []Intent{
		{Kind: IntentSelect, Player: b.Player, Ships: idle, Replace: true},
		{Kind: IntentMove, Player: b.Player, Target: target.Lighthouse},
	}
}

// nearestTarget returns the closest island not owned by the bot, measured
// from the fleet centroid.
func (b *Bot) nearestTarget(v View, ships []*Ship) *maps.Island {
	var c geom.V2D
	for _, sh := range ships {
		c = c.Add(sh.Position)
	}
	c = c.Scale(1 / float64(len(ships)))

	w := v.World()
	var best *maps.Island
	bestDist := math.Inf(1)
	for i := range w.Islands {
		is := w.Islands[i]
		if v.Owner(is.ID) == b.Player {
			continue
		}
		if d := c.Dist(is.Center); d < bestDist {
			best, bestDist = is, d
		}
	}
	return best
}

// spawnAt picks a water point near an owned lighthouse, or near home.
func (b *Bot) spawnAt(v View, rng *rand.Rand) geom.V2D {
	w := v.World()
	base := geom.V2D{}
	if p := v.Player(b.Player); p != nil {
		base = p.Home
	}
	for i := range w.Islands {
		if v.Owner(w.Islands[i].ID) == b.Player {
			base = w.Islands[i].Lighthouse
			break
		}
	}

	jitter := geom.V2D{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}.Scale(2 * w.TileSize())
	if at := base.Add(jitter); w.IsWaterAt(at) {
		return at
	}
	return base
}

// runBots lets every bot act on the current state, then replaces dead bots.
func (s *State) runBots(events []Event) []Event {
	for _, pid := range s.playerIDs() {
		bot := s.bots[pid]
		if bot == nil {
			continue
		}
		s.intents = append(s.intents, bot.Decide(s, s.players[pid].rng)...)
	}

	for _, pid := range s.playerIDs() {
		if bot := s.bots[pid]; bot != nil && bot.State == BotDead {
			events, _ = s.removePlayer(pid, events)
		}
	}
	return s.fillBots(events)
}

func (s *State) fillBots(events []Event) []Event {
	for len(s.bots) < s.botTarget {
		events = s.addBot(events)
	}
	return events
}

func (s *State) addBot(events []Event) []Event {
	p := NewPlayer(s.ids.Next(), "", s.world.Config.Seed)
	p.IsBot = true
	p.Name = defaultName(p)
	s.place(p)
	s.bots[p.ID] = NewBot(p.ID, s.settings.BotInterval, s.settings.BotActionChance)
	return append(events, joinedEvent(p))
}

// removeBot removes the named bot, or the newest one when id is zero.
func (s *State) removeBot(id PlayerID, events []Event) ([]Event, error) {
	if id == 0 {
		for pid := range s.bots {
			id = max(id, pid)
		}
	}
	if _, ok := s.bots[id]; !ok {
		return events, ErrUnknownPlayer
	}
	s.botTarget = max(0, s.botTarget-1)
	return s.removePlayer(id, events)
}
