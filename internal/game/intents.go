package game

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/pkg/geom"
)

// IntentKind is the type of a requested state change.
type IntentKind uint8

const (
	IntentAddPlayer IntentKind = iota + 1
	IntentRemovePlayer
	IntentAddBot
	IntentRemoveBot
	IntentCreateShip
	IntentMove
	IntentSelect
	IntentDeselect
	IntentShoot
	IntentSetShootRadius
	IntentSetName
	IntentAdvanceTime
)

// String returns the intent name.
func (k IntentKind) String() string {
	switch k {
	case IntentAddPlayer:
		return "add_player"
	case IntentRemovePlayer:
		return "remove_player"
	case IntentAddBot:
		return "add_bot"
	case IntentRemoveBot:
		return "remove_bot"
	case IntentCreateShip:
		return "create_ship"
	case IntentMove:
		return "move"
	case IntentSelect:
		return "select"
	case IntentDeselect:
		return "deselect"
	case IntentShoot:
		return "shoot"
	case IntentSetShootRadius:
		return "set_shoot_radius"
	case IntentSetName:
		return "set_name"
	case IntentAdvanceTime:
		return "advance_time"
	default:
		return "unknown"
	}
}

// PlayerScoped reports whether the intent acts on behalf of the sending
// player, so its Player field is filled from the connection.
func (k IntentKind) PlayerScoped() bool {
	switch k {
	case IntentCreateShip, IntentMove, IntentSelect, IntentDeselect,
		IntentShoot, IntentSetShootRadius, IntentSetName:
		return true
	}
	return false
}

// Remote reports whether a networked client may send the intent. Joining,
// leaving, the bot population and time control belong to the host.
func (k IntentKind) Remote() bool {
	switch k {
	case IntentAddPlayer, IntentRemovePlayer, IntentAddBot, IntentRemoveBot, IntentAdvanceTime:
		return false
	}
	return k >= IntentAddPlayer && k <= IntentAdvanceTime
}

// Intent is a request to change the simulation, applied at the start of the
// next step. Player is filled in by whoever owns the connection.
type Intent struct {
	Kind    IntentKind `msgpack:"k"`
	Player  PlayerID   `msgpack:"p,omitempty"`
	Target  geom.V2D   `msgpack:"t"`
	Ships   []ShipID   `msgpack:"s,omitempty"`
	Replace bool       `msgpack:"rp,omitempty"`
	Radius  float64    `msgpack:"r,omitempty"`
	Name    string     `msgpack:"n,omitempty"`
	Dt      float64    `msgpack:"dt,omitempty"`
}

// applyIntents drains the queue. Intents that fail are dropped.
func (s *State) applyIntents(events []Event) []Event {
	queue := s.intents
	s.intents = nil

	for _, in := range queue {
		var err error
		events, err = s.apply(in, events)
		if err != nil {
			s.logger().WithFields(logrus.Fields{
				"player": in.Player,
				"tick":   s.tick,
				"intent": in.Kind.String(),
			}).WithError(err).Debug("Dropped intent")
		}
	}
	return events
}

func (s *State) apply(in Intent, events []Event) ([]Event, error) {
	switch in.Kind {
	case IntentAddPlayer:
		return s.addPlayer(in.Player, in.Name, events)
	case IntentRemovePlayer:
		return s.removePlayer(in.Player, events)
	case IntentAddBot:
		s.botTarget++
		return s.addBot(events), nil
	case IntentRemoveBot:
		return s.removeBot(in.Player, events)
	case IntentAdvanceTime:
		// Handled by the local host before stepping.
		return events, nil
	}

	p := s.players[in.Player]
	if p == nil {
		return events, ErrUnknownPlayer
	}

	switch in.Kind {
	case IntentCreateShip:
		return s.createShip(p, in.Target, events)
	case IntentMove:
		return s.moveSelected(p, in.Target, events)
	case IntentSelect:
		return s.selectShips(p, in.Ships, in.Replace, events)
	case IntentDeselect:
		return s.deselectShips(p, in.Ships, events), nil
	case IntentShoot:
		return s.shootAt(p, in.Target, events)
	case IntentSetShootRadius:
		return s.setShootRadius(p, in.Radius, events), nil
	case IntentSetName:
		return s.setName(p, in.Name, events)
	}
	return events, fmt.Errorf("%w: %d", ErrUnknownIntent, in.Kind)
}
